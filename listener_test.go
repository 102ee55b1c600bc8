package emberplus

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestListenerAcceptsAndTracksClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := DefaultServerSettings("127.0.0.1:0")
	listener := NewListener(ctx, settings)
	assert.Equal(t, nil, listener.Listen())

	addr := listener.listener.Addr().String()
	go listener.Serve()
	defer listener.Close()

	connected := make(chan struct{}, 1)
	listener.AddOnConnection(func(*Connection) { connected <- struct{}{} })

	clientConn, err := net.DialTimeout("tcp", addr, time.Second)
	assert.Equal(t, nil, err)
	defer clientConn.Close()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connection event")
	}

	assert.Equal(t, 1, len(listener.Clients()))
}

func TestListenerReapsOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := DefaultServerSettings("127.0.0.1:0")
	listener := NewListener(ctx, settings)
	assert.Equal(t, nil, listener.Listen())

	addr := listener.listener.Addr().String()
	go listener.Serve()
	defer listener.Close()

	disconnected := make(chan struct{}, 1)
	listener.AddOnDisconnect(func(*Connection) { disconnected <- struct{}{} })

	clientConn, err := net.DialTimeout("tcp", addr, time.Second)
	assert.Equal(t, nil, err)
	clientConn.Close()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect event")
	}

	assert.Equal(t, 0, len(listener.Clients()))
}
