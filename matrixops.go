package emberplus

import "github.com/jp-jp-jp/node-emberplus/ember"

// MatrixChangeEvent carries one matrix mutation's result, suitable for
// both the generic matrix-change callback and the op-specific
// matrix-connect / matrix-disconnect callbacks.
type MatrixChangeEvent struct {
	Client  *Connection
	Element *ember.Element
	Target  int
	Sources []int
	Op      ember.MatrixOperation
}

// handleMatrixConnections validates and applies every incoming connection
// request against element, a matrix, rejecting the whole batch on the
// first invalid entry (a violation aborts before any mutation), then
// sends a response carrying only the touched targets with their
// resulting sources and disposition=modified, and fans that response out
// to the matrix path's subscribers.
func (self *Dispatcher) handleMatrixConnections(client *Connection, element *ember.Element, requests []ember.DetachedConnection, qualified bool) {
	if !element.IsMatrix() {
		self.emitError(NewError(ErrorKindSemantic, "element %s is not a matrix", element.Path()))
		client.QueueMessage(minimalTreeRoot())
		return
	}

	connReqs := make([]ember.ConnectionRequest, 0, len(requests))
	for _, r := range requests {
		connReqs = append(connReqs, ember.ConnectionRequest{
			Target:    r.Target,
			Sources:   r.Sources,
			Operation: r.Operation,
		})
	}

	for _, req := range connReqs {
		if err := element.ValidateConnectionRequest(req); err != nil {
			self.emitError(NewError(ErrorKindSemantic, "%w", err))
			return
		}
	}

	touched := make([]ember.DetachedConnection, 0, len(connReqs))
	for _, req := range connReqs {
		resulting, err := element.ApplyConnection(req.Target, req.Sources, req.Operation)
		if err != nil {
			self.emitError(NewError(ErrorKindSemantic, "%w", err))
			continue
		}
		touched = append(touched, ember.DetachedConnection{
			Target:      req.Target,
			Sources:     resulting,
			Disposition: ember.MatrixDispositionModified,
		})

		event := MatrixChangeEvent{Client: client, Element: element, Target: req.Target, Sources: resulting, Op: req.Operation}
		for _, callback := range self.onMatrixChange.Get() {
			callback(event)
		}
		switch req.Operation {
		case ember.MatrixOperationConnect:
			for _, callback := range self.onMatrixConnect.Get() {
				callback(event)
			}
		case ember.MatrixOperationDisconnect:
			for _, callback := range self.onMatrixDisconnect.Get() {
				callback(event)
			}
		}
	}

	response := buildMatrixResponse(element, qualified, touched)
	client.QueueMessage(response)
	self.subs.UpdateSubscribers(element.Path(), response, client)
}

// buildMatrixResponse shapes a matrix response carrying only the touched
// connections, in the request's qualified/unqualified form.
func buildMatrixResponse(element *ember.Element, qualified bool, touched []ember.DetachedConnection) *ember.Detached {
	d := element.GetDuplicate(qualified)
	d.Connections = touched
	if qualified {
		return d
	}
	return element.GetTreeBranch(d)
}
