package emberplus

import (
	"context"
	"net"
	"sync"

	"github.com/golang/glog"
)

// Listener accepts TCP connections, wraps each in a Connection, and keeps
// the live client set the Dispatcher needs for lazy subscription reaping.
type Listener struct {
	ctx      context.Context
	cancel   context.CancelFunc
	settings *ServerSettings
	listener net.Listener

	mutex   sync.Mutex
	clients map[ClientId]*Connection

	onListening  *CallbackList[func()]
	onConnection *CallbackList[func(*Connection)]
	onDisconnect *CallbackList[func(*Connection)]
	onClientError *CallbackList[func(*Connection, error)]
}

func NewListener(ctx context.Context, settings *ServerSettings) *Listener {
	if settings == nil {
		settings = DefaultServerSettings(":9000")
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	return &Listener{
		ctx:           cancelCtx,
		cancel:        cancel,
		settings:      settings,
		clients:       map[ClientId]*Connection{},
		onListening:   NewCallbackList[func()](),
		onConnection:  NewCallbackList[func(*Connection)](),
		onDisconnect:  NewCallbackList[func(*Connection)](),
		onClientError: NewCallbackList[func(*Connection, error)](),
	}
}

func (self *Listener) AddOnListening(fn func()) func()                       { return self.onListening.Add(fn) }
func (self *Listener) AddOnConnection(fn func(*Connection)) func()           { return self.onConnection.Add(fn) }
func (self *Listener) AddOnDisconnect(fn func(*Connection)) func()           { return self.onDisconnect.Add(fn) }
func (self *Listener) AddOnClientError(fn func(*Connection, error)) func()   { return self.onClientError.Add(fn) }

// Listen binds the configured address; it does not accept. It returns
// once the bind succeeds; Serve runs the accept loop in the caller's
// goroutine so callers can decide whether to background it.
func (self *Listener) Listen() error {
	ln, err := net.Listen("tcp", self.settings.BindAddress)
	if err != nil {
		return NewError(ErrorKindTransport, "listen %s: %w", self.settings.BindAddress, err)
	}
	self.listener = ln
	for _, callback := range self.onListening.Get() {
		callback()
	}
	return nil
}

// Serve runs the accept loop until the Listener's context is cancelled or
// Close is called. It blocks.
func (self *Listener) Serve() error {
	go func() {
		<-self.ctx.Done()
		self.listener.Close()
	}()

	for {
		conn, err := self.listener.Accept()
		if err != nil {
			select {
			case <-self.ctx.Done():
				return nil
			default:
				return NewError(ErrorKindTransport, "accept: %w", err)
			}
		}
		self.accept(conn)
	}
}

func (self *Listener) accept(conn net.Conn) {
	client := NewConnection(self.ctx, conn, self.settings.Connection)

	client.AddOnError(func(err error) {
		for _, callback := range self.onClientError.Get() {
			callback(client, err)
		}
	})
	client.AddOnDisconnected(func() {
		self.mutex.Lock()
		delete(self.clients, client.Id())
		self.mutex.Unlock()
		for _, callback := range self.onDisconnect.Get() {
			callback(client)
		}
	})

	self.mutex.Lock()
	self.clients[client.Id()] = client
	self.mutex.Unlock()

	client.Start()

	glog.Infof("accepted connection from %s\n", client.RemoteAddress())
	for _, callback := range self.onConnection.Get() {
		callback(client)
	}
}

// Clients returns a snapshot of the currently live connections.
func (self *Listener) Clients() []*Connection {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	clients := make([]*Connection, 0, len(self.clients))
	for _, c := range self.clients {
		clients = append(clients, c)
	}
	return clients
}

// Close stops accepting and disconnects every live client.
func (self *Listener) Close() {
	self.cancel()
	if self.listener != nil {
		self.listener.Close()
	}
	for _, client := range self.Clients() {
		client.Disconnect()
	}
}
