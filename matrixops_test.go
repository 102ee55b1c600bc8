package emberplus

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/jp-jp-jp/node-emberplus/ember"
)

func TestHandleMatrixAbsoluteReplacesSources(t *testing.T) {
	tree := buildDispatcherTestTree()
	dispatcher := NewDispatcher(tree)
	client := newTestClient(t)

	req := &ember.Detached{
		Qualified: true,
		Path:      "0.3",
		Kind:      ember.KindMatrix,
		Connections: []ember.DetachedConnection{
			{Target: 1, Sources: []int{3}, Operation: ember.MatrixOperationAbsolute},
		},
	}
	dispatcher.HandleRoot(client.conn, req)

	resp := client.expectMessage(t)
	assert.Equal(t, 1, len(resp.Connections[0].Sources))
	assert.Equal(t, 3, resp.Connections[0].Sources[0])

	el, _ := tree.GetElementByPath("0.3")
	conn, _ := el.Connection(1)
	assert.Equal(t, 1, len(conn.Sources))
	assert.Equal(t, true, conn.Sources[3])
}

func TestHandleMatrixDisconnectRemovesSource(t *testing.T) {
	tree := buildDispatcherTestTree()
	dispatcher := NewDispatcher(tree)
	client := newTestClient(t)

	req := &ember.Detached{
		Qualified: true,
		Path:      "0.3",
		Kind:      ember.KindMatrix,
		Connections: []ember.DetachedConnection{
			{Target: 1, Sources: []int{0}, Operation: ember.MatrixOperationDisconnect},
		},
	}
	dispatcher.HandleRoot(client.conn, req)

	resp := client.expectMessage(t)
	assert.Equal(t, 0, len(resp.Connections[0].Sources))

	el, _ := tree.GetElementByPath("0.3")
	conn, _ := el.Connection(1)
	assert.Equal(t, 0, len(conn.Sources))
}

func TestHandleMatrixOutOfRangeTargetRejectedWithoutMutation(t *testing.T) {
	tree := buildDispatcherTestTree()
	dispatcher := NewDispatcher(tree)
	client := newTestClient(t)

	var dispatchErr error
	dispatcher.AddOnError(func(err error) { dispatchErr = err })

	el, _ := tree.GetElementByPath("0.3")
	before, _ := el.Connection(1)
	beforeSources := before.SourceList()

	req := &ember.Detached{
		Qualified: true,
		Path:      "0.3",
		Kind:      ember.KindMatrix,
		Connections: []ember.DetachedConnection{
			{Target: 99, Sources: []int{0}, Operation: ember.MatrixOperationConnect},
		},
	}
	dispatcher.HandleRoot(client.conn, req)

	client.expectNoMessage(t)
	assert.NotEqual(t, nil, dispatchErr)

	after, _ := el.Connection(1)
	assert.Equal(t, len(beforeSources), len(after.SourceList()))
}

func TestCommandSubscribeThenWriteFansOut(t *testing.T) {
	tree := buildDispatcherTestTree()
	dispatcher := NewDispatcher(tree)
	client := newTestClient(t)

	el, _ := tree.GetElementByPath("0.1")

	subReq := &ember.Detached{Qualified: true, Path: "0.1", Children: []*ember.Detached{
		{Kind: ember.KindCommand, Command: ember.CommandSubscribe},
	}}
	dispatcher.HandleRoot(client.conn, subReq)

	assert.Equal(t, true, dispatcher.Subscriptions() != nil)

	writeReq := &ember.Detached{Qualified: true, Path: "0.1", Kind: ember.KindParameter, Value: int64(55)}
	otherClient := newTestClient(t)
	dispatcher.HandleRoot(otherClient.conn, writeReq)

	resp := client.expectMessage(t)
	assert.Equal(t, int64(55), resp.Value)
	assert.Equal(t, el.Path(), "0.1")
}
