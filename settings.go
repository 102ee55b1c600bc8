package emberplus

import "time"

// ConnectionSettings configures one client session's keepalive cadence and
// internal buffering.
type ConnectionSettings struct {
	// KeepaliveInterval is how often a keepalive-request frame is sent to
	// the peer.
	KeepaliveInterval time.Duration

	// RequestQueueSize bounds the number of decoded requests a client may
	// have pending dispatch before AddRequest starts applying backpressure
	// by blocking the reader.
	RequestQueueSize int

	// SendQueueSize bounds the number of outgoing frames buffered for the
	// writer goroutine before QueueMessage blocks.
	SendQueueSize int

	// DialTimeout is the timeout for an outbound (client-mode) connect.
	// This package has no outbound connect, so nothing reads it; it has no
	// effect on accepted server connections.
	DialTimeout time.Duration
}

func DefaultConnectionSettings() *ConnectionSettings {
	return &ConnectionSettings{
		KeepaliveInterval: 10 * time.Second,
		RequestQueueSize:  64,
		SendQueueSize:     64,
		DialTimeout:       2 * time.Second,
	}
}

// ServerSettings configures a Listener + Dispatcher pair.
type ServerSettings struct {
	BindAddress string
	Connection  *ConnectionSettings
}

func DefaultServerSettings(bindAddress string) *ServerSettings {
	return &ServerSettings{
		BindAddress: bindAddress,
		Connection:  DefaultConnectionSettings(),
	}
}
