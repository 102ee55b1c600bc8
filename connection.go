package emberplus

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/jp-jp-jp/node-emberplus/ember"
	"github.com/jp-jp-jp/node-emberplus/s101"
)

// Connection owns one accepted or dialed socket. It feeds bytes read from
// the socket to an s101.Codec, decodes completed Ember+ messages against
// the ember package, and serializes outgoing frames through a single
// writer so that per-client response ordering holds regardless of how many
// goroutines call QueueMessage.
//
// This is the Connection (L2) of the layered design: Listener (L3) spawns
// one per accepted socket; Dispatcher (L4) is driven through the
// AddRequest pipeline rather than calling into the socket directly.
type Connection struct {
	id       ClientId
	ctx      context.Context
	cancel   context.CancelFunc
	conn     net.Conn
	settings *ConnectionSettings
	codec    *s101.Codec
	queue    *requestQueue

	sendQueue chan []byte

	onTree         *CallbackList[func(*ember.Detached)]
	onPacket       *CallbackList[func([]byte)]
	onDisconnected *CallbackList[func()]
	onError        *CallbackList[func(error)]

	closeOnce sync.Once
	closed    chan struct{}
}

func NewConnection(ctx context.Context, conn net.Conn, settings *ConnectionSettings) *Connection {
	if settings == nil {
		settings = DefaultConnectionSettings()
	}
	cancelCtx, cancel := context.WithCancel(ctx)

	self := &Connection{
		id:             NewClientId(),
		ctx:            cancelCtx,
		cancel:         cancel,
		conn:           conn,
		settings:       settings,
		queue:          newRequestQueue(settings.RequestQueueSize),
		sendQueue:      make(chan []byte, settings.SendQueueSize),
		onTree:         NewCallbackList[func(*ember.Detached)](),
		onPacket:       NewCallbackList[func([]byte)](),
		onDisconnected: NewCallbackList[func()](),
		onError:        NewCallbackList[func(error)](),
		closed:         make(chan struct{}),
	}

	self.codec = s101.NewCodec(s101.Handlers{
		OnKeepaliveRequest:  self.sendKeepaliveResponse,
		OnKeepaliveResponse: func() {},
		OnEmberPacket:       self.handleEmberPacket,
	})

	return self
}

func (self *Connection) Id() ClientId        { return self.id }
func (self *Connection) RemoteAddress() string {
	if self.conn == nil {
		return ""
	}
	return self.conn.RemoteAddr().String()
}

func (self *Connection) AddOnTree(fn func(*ember.Detached)) func()   { return self.onTree.Add(fn) }
func (self *Connection) AddOnPacket(fn func([]byte)) func()          { return self.onPacket.Add(fn) }
func (self *Connection) AddOnDisconnected(fn func()) func()          { return self.onDisconnected.Add(fn) }
func (self *Connection) AddOnError(fn func(error)) func()            { return self.onError.Add(fn) }

// Start launches the connection's background goroutines: the socket
// reader, the serialized writer, the request pump and the keepalive
// timer. It returns immediately.
func (self *Connection) Start() {
	go self.readLoop()
	go self.writeLoop()
	go self.queue.Run(func(err error) {
		self.emitError(NewError(ErrorKindSemantic, "recovered panic in dispatch: %w", err))
	})
	go self.keepaliveLoop()
}

func (self *Connection) readLoop() {
	defer self.teardown()

	buf := make([]byte, 4096)
	for {
		n, err := self.conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			HandleError(func() {
				self.codec.Feed(chunk)
			}, func(panicErr error) {
				self.emitError(NewError(ErrorKindProtocol, "recovered panic in codec: %w", panicErr))
			})
		}
		if err != nil {
			if !self.isClosed() {
				self.emitError(NewError(ErrorKindTransport, "read: %w", err))
			}
			return
		}
	}
}

func (self *Connection) writeLoop() {
	for {
		select {
		case frame := <-self.sendQueue:
			if _, err := self.conn.Write(frame); err != nil {
				if !self.isClosed() {
					self.emitError(NewError(ErrorKindTransport, "write: %w", err))
				}
				return
			}
		case <-self.ctx.Done():
			return
		}
	}
}

func (self *Connection) keepaliveLoop() {
	ticker := time.NewTicker(self.settings.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			self.enqueueFrame(s101.EncodeKeepaliveRequest())
		case <-self.ctx.Done():
			return
		}
	}
}

// sendKeepaliveResponse answers a keepalive-request immediately, bypassing
// the request queue entirely -- it must not be starved behind dispatch
// work, per the keepalive contract.
func (self *Connection) sendKeepaliveResponse() {
	self.enqueueFrame(s101.EncodeKeepaliveResponse())
}

func (self *Connection) handleEmberPacket(payload []byte) {
	for _, callback := range self.onPacket.Get() {
		callback(payload)
	}

	root, err := ember.Decode(payload)
	if err != nil {
		self.emitError(NewError(ErrorKindProtocol, "decode: %w", err))
		return
	}
	for _, callback := range self.onTree.Get() {
		callback(root)
	}
}

func (self *Connection) emitError(err error) {
	glog.Infof("[%s] %s\n", self.RemoteAddress(), err)
	for _, callback := range self.onError.Get() {
		callback(err)
	}
}

// AddRequest enqueues a unit of dispatch work to run after every
// previously queued request for this client has completed.
func (self *Connection) AddRequest(work func()) {
	self.queue.Add(work)
}

// QueueMessage encodes and frames a response or notification payload and
// enqueues it on the writer. It never blocks longer than the send queue's
// capacity before falling back to the connection's context -- a
// disconnected client's queued messages are simply dropped.
func (self *Connection) QueueMessage(d *ember.Detached) {
	payload := ember.Encode(d)
	for _, frame := range s101.EncodeEmber(payload) {
		self.enqueueFrame(frame)
	}
}

func (self *Connection) enqueueFrame(frame []byte) {
	select {
	case self.sendQueue <- frame:
	case <-self.ctx.Done():
	}
}

func (self *Connection) isClosed() bool {
	select {
	case <-self.closed:
		return true
	default:
		return false
	}
}

// Disconnect closes the socket and cancels all of this connection's
// background work. The returned channel closes once teardown has run.
func (self *Connection) Disconnect() <-chan struct{} {
	self.conn.Close()
	return self.closed
}

// Done returns a channel that closes once this connection has fully torn
// down, mirroring the future/promise-returning lifecycle of the reference
// design in channel form.
func (self *Connection) Done() <-chan struct{} {
	return self.closed
}

func (self *Connection) teardown() {
	self.closeOnce.Do(func() {
		self.cancel()
		self.queue.Close()
		self.conn.Close()
		close(self.closed)
		for _, callback := range self.onDisconnected.Get() {
			callback()
		}
	})
}
