package emberplus

import "github.com/jp-jp-jp/node-emberplus/ember"

// handleCommand dispatches one of the Ember+ commands (GetDirectory,
// Subscribe, Unsubscribe) against element on behalf of client. Invoke is
// accepted by the wire format but this server's tree has no invocable
// targets, so it is treated the same as an unknown command.
func (self *Dispatcher) handleCommand(client *Connection, element *ember.Element, command ember.CommandType, qualified bool) {
	switch command {
	case ember.CommandGetDirectory:
		self.handleGetDirectory(client, element, qualified)

	case ember.CommandSubscribe:
		self.subs.Subscribe(element.Path(), client)

	case ember.CommandUnsubscribe:
		self.subs.Unsubscribe(element.Path(), client)

	default:
		self.emitError(NewError(ErrorKindSemantic, "unknown command %d", command))
	}
}

// handleGetDirectory auto-subscribes the client per the Ember+ contract --
// directly to the target when it is a matrix or a non-stream parameter,
// or to each immediate child when it is a node (or a streamed parameter,
// which has nothing of its own worth subscribing to) -- then replies with
// a directory listing: the target's own content plus each child's content
// duplicated, grandchildren trimmed.
func (self *Dispatcher) handleGetDirectory(client *Connection, element *ember.Element, qualified bool) {
	if (element.IsMatrix() || (element.IsParameter() && !element.IsStream())) {
		self.subs.Subscribe(element.Path(), client)
	} else {
		for _, child := range element.Children() {
			self.subs.Subscribe(child.Path(), client)
		}
	}

	directory := element.GetDuplicate(qualified)
	element.WithDuplicatedChildren(directory)

	var response *ember.Detached
	if qualified {
		response = directory
	} else {
		response = element.GetTreeBranch(directory)
	}
	client.QueueMessage(response)
}
