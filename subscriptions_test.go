package emberplus

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/jp-jp-jp/node-emberplus/ember"
)

func TestSubscriptionRegistryExcludesOrigin(t *testing.T) {
	registry := NewSubscriptionRegistry()
	a := newTestClient(t)
	b := newTestClient(t)

	registry.Subscribe("1.2", a.conn)
	registry.Subscribe("1.2", b.conn)

	response := &ember.Detached{Qualified: true, Path: "1.2", Kind: ember.KindParameter, Value: int64(1)}
	registry.UpdateSubscribers("1.2", response, a.conn)

	a.expectNoMessage(t)
	got := b.expectMessage(t)
	assert.Equal(t, int64(1), got.Value)
}

func TestSubscriptionRegistryUnsubscribeStopsDelivery(t *testing.T) {
	registry := NewSubscriptionRegistry()
	client := newTestClient(t)

	registry.Subscribe("1.2", client.conn)
	registry.Unsubscribe("1.2", client.conn)

	response := &ember.Detached{Qualified: true, Path: "1.2", Kind: ember.KindParameter, Value: int64(1)}
	registry.UpdateSubscribers("1.2", response, nil)

	client.expectNoMessage(t)
}

func TestSubscriptionRegistryRemoveClientDropsAllPaths(t *testing.T) {
	registry := NewSubscriptionRegistry()
	client := newTestClient(t)

	registry.Subscribe("1.2", client.conn)
	registry.Subscribe("1.3", client.conn)
	registry.RemoveClient(client.conn)

	response := &ember.Detached{Qualified: true, Path: "1.2", Kind: ember.KindParameter, Value: int64(1)}
	registry.UpdateSubscribers("1.2", response, nil)
	registry.UpdateSubscribers("1.3", response, nil)

	client.expectNoMessage(t)
}

func TestSubscriptionRegistryDeliversToMultipleSubscribers(t *testing.T) {
	registry := NewSubscriptionRegistry()
	a := newTestClient(t)
	b := newTestClient(t)
	c := newTestClient(t)

	registry.Subscribe("1.2", a.conn)
	registry.Subscribe("1.2", b.conn)

	response := &ember.Detached{Qualified: true, Path: "1.2", Kind: ember.KindParameter, Value: int64(7)}
	registry.UpdateSubscribers("1.2", response, nil)

	a.expectMessage(t)
	b.expectMessage(t)
	c.expectNoMessage(t)
}
