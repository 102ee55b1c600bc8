package emberplus

import (
	"context"

	"github.com/jp-jp-jp/node-emberplus/ember"
)

// Server wires a Listener to a Dispatcher over a shared Tree: every
// accepted connection's decoded requests are handed to the same
// Dispatcher, and every connection's disconnect lazily reaps its
// subscriptions.
type Server struct {
	settings   *ServerSettings
	tree       *ember.Tree
	listener   *Listener
	dispatcher *Dispatcher
}

func NewServer(settings *ServerSettings, tree *ember.Tree) *Server {
	if settings == nil {
		settings = DefaultServerSettings(":9000")
	}
	return &Server{
		settings:   settings,
		tree:       tree,
		dispatcher: NewDispatcher(tree),
	}
}

func (self *Server) Dispatcher() *Dispatcher { return self.dispatcher }
func (self *Server) Listener() *Listener     { return self.listener }

// Listen creates the Listener, wires each accepted connection's
// ember_tree events to the Dispatcher and its disconnect event to
// subscription reaping, and binds the configured address. Callers that
// need to attach metrics or other observers to the Listener should do so
// between Listen and Serve.
func (self *Server) Listen(ctx context.Context) error {
	self.listener = NewListener(ctx, self.settings)

	self.listener.AddOnConnection(func(client *Connection) {
		client.AddOnTree(func(root *ember.Detached) {
			client.AddRequest(func() {
				self.dispatcher.HandleRoot(client, root)
			})
		})
	})
	self.listener.AddOnDisconnect(func(client *Connection) {
		self.dispatcher.Subscriptions().RemoveClient(client)
	})

	return self.listener.Listen()
}

// Serve blocks in the accept loop until ctx is cancelled or a fatal
// accept error occurs.
func (self *Server) Serve() error {
	return self.listener.Serve()
}

// ListenAndServe is Listen followed by Serve, for callers with nothing to
// attach in between.
func (self *Server) ListenAndServe(ctx context.Context) error {
	if err := self.Listen(ctx); err != nil {
		return err
	}
	return self.Serve()
}

// Close stops the listener and disconnects every live client.
func (self *Server) Close() {
	if self.listener != nil {
		self.listener.Close()
	}
}
