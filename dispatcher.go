package emberplus

import (
	"sync"

	"github.com/golang/glog"

	"github.com/jp-jp-jp/node-emberplus/ember"
)

// RequestEvent is delivered to AddOnRequest for every decoded root handed
// to the Dispatcher, before classification -- useful for audit logging or
// metrics regardless of how the request is ultimately handled.
type RequestEvent struct {
	Client *Connection
	Root   *ember.Detached
	Path   string
}

// ValueChangeEvent carries the previous value of a parameter write, so
// observers can diff without re-reading the tree under a race.
type ValueChangeEvent struct {
	Client   *Connection
	Element  *ember.Element
	Previous any
}

// Dispatcher interprets decoded Ember+ requests against a live tree,
// producing responses and fanning out change notifications through a
// SubscriptionRegistry. All dispatcher work and response construction run
// under a single coarse lock -- the straightforward single-writer
// discipline the tree's concurrent readers and writers require; per-path
// finer locking is deliberately not attempted here since nothing in this
// server's workload makes the coarse lock a bottleneck worth the
// complexity.
type Dispatcher struct {
	tree *ember.Tree
	subs *SubscriptionRegistry

	mutex sync.Mutex

	onRequest         *CallbackList[func(RequestEvent)]
	onValueChange     *CallbackList[func(ValueChangeEvent)]
	onMatrixChange    *CallbackList[func(MatrixChangeEvent)]
	onMatrixConnect   *CallbackList[func(MatrixChangeEvent)]
	onMatrixDisconnect *CallbackList[func(MatrixChangeEvent)]
	onError           *CallbackList[func(error)]
}

func NewDispatcher(tree *ember.Tree) *Dispatcher {
	return &Dispatcher{
		tree:               tree,
		subs:               NewSubscriptionRegistry(),
		onRequest:          NewCallbackList[func(RequestEvent)](),
		onValueChange:      NewCallbackList[func(ValueChangeEvent)](),
		onMatrixChange:     NewCallbackList[func(MatrixChangeEvent)](),
		onMatrixConnect:    NewCallbackList[func(MatrixChangeEvent)](),
		onMatrixDisconnect: NewCallbackList[func(MatrixChangeEvent)](),
		onError:            NewCallbackList[func(error)](),
	}
}

func (self *Dispatcher) AddOnRequest(fn func(RequestEvent)) func()             { return self.onRequest.Add(fn) }
func (self *Dispatcher) AddOnValueChange(fn func(ValueChangeEvent)) func()     { return self.onValueChange.Add(fn) }
func (self *Dispatcher) AddOnMatrixChange(fn func(MatrixChangeEvent)) func()   { return self.onMatrixChange.Add(fn) }
func (self *Dispatcher) AddOnMatrixConnect(fn func(MatrixChangeEvent)) func()  { return self.onMatrixConnect.Add(fn) }
func (self *Dispatcher) AddOnMatrixDisconnect(fn func(MatrixChangeEvent)) func() {
	return self.onMatrixDisconnect.Add(fn)
}
func (self *Dispatcher) AddOnError(fn func(error)) func() { return self.onError.Add(fn) }

// Subscriptions exposes the registry for tests and for Listener-level
// lazy reaping on client disconnect.
func (self *Dispatcher) Subscriptions() *SubscriptionRegistry { return self.subs }

// HandleRoot is the Dispatcher's single entry point: given a client
// session and a decoded root, it classifies the request, mutates the tree
// if appropriate, and sends a response (plus any subscriber fan-out)
// through client.QueueMessage.
func (self *Dispatcher) HandleRoot(client *Connection, root *ember.Detached) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	numbers, target, command, qualified, path := resolveRequest(root)

	for _, callback := range self.onRequest.Get() {
		callback(RequestEvent{Client: client, Root: root, Path: path})
	}

	var element *ember.Element
	var ok bool
	if qualified {
		element, ok = self.tree.GetElementByPath(path)
	} else {
		element, ok = self.tree.GetElementByNumbers(numbers)
	}
	if !ok {
		self.emitError(NewError(ErrorKindSemantic, "unknown element for request"))
		client.QueueMessage(minimalTreeRoot())
		return
	}

	switch {
	case command != nil:
		self.handleCommand(client, element, command.Command, qualified)

	case target.Kind == ember.KindMatrix && len(target.Connections) > 0:
		self.handleMatrixConnections(client, element, target.Connections, qualified)

	case target.Kind == ember.KindParameter && target.Value != nil:
		self.handleParameterSet(client, element, target.Value, qualified)

	default:
		self.emitError(NewError(ErrorKindSemantic, "request classifies as neither command, matrix update nor parameter set"))
		client.QueueMessage(minimalTreeRoot())
	}
}

// resolveRequest walks an incoming Detached to find the target element
// the request addresses, following single-child chains for unqualified
// (number-path) requests, or taking the root itself for qualified
// (absolute-path) requests. A Command is never itself a step in that
// chain: it is a marker attached as the target's lone child, naming the
// action to apply to the target rather than a further descent.
func resolveRequest(root *ember.Detached) (numbers []int, target *ember.Detached, command *ember.Detached, qualified bool, path string) {
	if root.Qualified {
		if len(root.Children) == 1 && root.Children[0].Kind == ember.KindCommand {
			return nil, root, root.Children[0], true, root.Path
		}
		return nil, root, nil, true, root.Path
	}

	numbers = []int{root.Number}
	cur := root
	for len(cur.Children) == 1 && cur.Children[0].Kind != ember.KindCommand {
		cur = cur.Children[0]
		numbers = append(numbers, cur.Number)
	}
	if len(cur.Children) == 1 && cur.Children[0].Kind == ember.KindCommand {
		return numbers, cur, cur.Children[0], false, ""
	}
	return numbers, cur, nil, false, ""
}

func (self *Dispatcher) emitError(err error) {
	glog.Warningf("dispatch error: %s\n", err)
	for _, callback := range self.onError.Get() {
		callback(err)
	}
}

func minimalTreeRoot() *ember.Detached {
	return &ember.Detached{Kind: ember.KindNode}
}

// buildElementResponse shapes a single-element response (no duplicated
// children) to match the request's qualified/unqualified form.
func buildElementResponse(element *ember.Element, qualified bool) *ember.Detached {
	if qualified {
		return element.ToQualified()
	}
	return element.GetTreeBranch(nil)
}

func (self *Dispatcher) handleParameterSet(client *Connection, element *ember.Element, value any, qualified bool) {
	if !element.IsParameter() {
		self.emitError(NewError(ErrorKindSemantic, "element %s is not a parameter", element.Path()))
		client.QueueMessage(minimalTreeRoot())
		return
	}
	if !element.Access().CanWrite() {
		// A write to a read-only parameter silently succeeds without
		// effect: no value change, no event, no response.
		return
	}

	previous := element.Value()
	element.SetValue(value)

	for _, callback := range self.onValueChange.Get() {
		callback(ValueChangeEvent{Client: client, Element: element, Previous: previous})
	}

	response := buildElementResponse(element, qualified)
	client.QueueMessage(response)
	self.subs.UpdateSubscribers(element.Path(), response, client)
}
