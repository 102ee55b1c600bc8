package emberplus

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/jp-jp-jp/node-emberplus/ember"
	"github.com/jp-jp-jp/node-emberplus/s101"
)

func TestConnectionRequestsRunInOrder(t *testing.T) {
	serverSide, _ := net.Pipe()
	defer serverSide.Close()

	conn := NewConnection(context.Background(), serverSide, DefaultConnectionSettings())
	conn.Start()
	defer conn.Disconnect()

	order := make(chan int, 3)
	conn.AddRequest(func() { order <- 1 })
	conn.AddRequest(func() { order <- 2 })
	conn.AddRequest(func() { order <- 3 })

	for _, want := range []int{1, 2, 3} {
		select {
		case got := <-order:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for queued request")
		}
	}
}

func TestConnectionQueueMessageReachesPeer(t *testing.T) {
	serverSide, peerSide := net.Pipe()
	defer peerSide.Close()

	conn := NewConnection(context.Background(), serverSide, DefaultConnectionSettings())
	conn.Start()
	defer conn.Disconnect()

	received := make(chan *ember.Detached, 1)
	peerCodec := s101.NewCodec(s101.Handlers{
		OnKeepaliveRequest:  func() {},
		OnKeepaliveResponse: func() {},
		OnEmberPacket: func(payload []byte) {
			d, err := ember.Decode(payload)
			if err == nil {
				received <- d
			}
		},
	})
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := peerSide.Read(buf)
			if n > 0 {
				peerCodec.Feed(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	conn.QueueMessage(&ember.Detached{Qualified: true, Path: "1.2", Kind: ember.KindParameter, Value: int64(5)})

	select {
	case d := <-received:
		assert.Equal(t, "1.2", d.Path)
		assert.Equal(t, int64(5), d.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ember packet")
	}
}

func TestConnectionAnswersKeepaliveImmediately(t *testing.T) {
	serverSide, peerSide := net.Pipe()
	defer peerSide.Close()

	conn := NewConnection(context.Background(), serverSide, DefaultConnectionSettings())
	conn.Start()
	defer conn.Disconnect()

	if _, err := peerSide.Write(s101.EncodeKeepaliveRequest()); err != nil {
		t.Fatalf("write keepalive request: %s", err)
	}

	gotResponse := make(chan struct{}, 1)
	peerCodec := s101.NewCodec(s101.Handlers{
		OnKeepaliveRequest:  func() {},
		OnKeepaliveResponse: func() { gotResponse <- struct{}{} },
		OnEmberPacket:       func([]byte) {},
	})
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := peerSide.Read(buf)
			if n > 0 {
				peerCodec.Feed(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case <-gotResponse:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for keepalive response")
	}
}
