package emberplus

import (
	"sync"

	"golang.org/x/exp/maps"

	"github.com/jp-jp-jp/node-emberplus/ember"
)

// SubscriptionRegistry maps a tree path to the set of clients that should
// receive fan-out notifications when that path changes. It is guarded by
// its own lock, separate from the Dispatcher's tree lock, since fan-out
// delivery (QueueMessage) never touches the tree.
type SubscriptionRegistry struct {
	mutex sync.Mutex
	paths map[string]map[ClientId]*Connection

	onFanout *CallbackList[func()]
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		paths:    map[string]map[ClientId]*Connection{},
		onFanout: NewCallbackList[func()](),
	}
}

// AddOnFanout registers fn to run once per message actually queued to a
// subscriber, useful for counting fan-out volume without touching
// delivery itself.
func (self *SubscriptionRegistry) AddOnFanout(fn func()) func() {
	return self.onFanout.Add(fn)
}

// Subscribe adds client to path's subscriber set.
func (self *SubscriptionRegistry) Subscribe(path string, client *Connection) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	set, ok := self.paths[path]
	if !ok {
		set = map[ClientId]*Connection{}
		self.paths[path] = set
	}
	set[client.Id()] = client
}

// Unsubscribe removes client from path's subscriber set. Absence is a
// no-op.
func (self *SubscriptionRegistry) Unsubscribe(path string, client *Connection) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	set, ok := self.paths[path]
	if !ok {
		return
	}
	delete(set, client.Id())
	if len(set) == 0 {
		delete(self.paths, path)
	}
}

// RemoveClient drops client from every subscription set. Called once a
// connection has fully disconnected.
func (self *SubscriptionRegistry) RemoveClient(client *Connection) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	for path, set := range self.paths {
		delete(set, client.Id())
		if len(set) == 0 {
			delete(self.paths, path)
		}
	}
}

// UpdateSubscribers delivers response to every subscriber of path except
// origin. A subscriber found to be already disconnected is deleted from
// the set as part of the same pass -- safe to do while iterating because
// the snapshot taken under the lock is a fresh slice, not the live map.
func (self *SubscriptionRegistry) UpdateSubscribers(path string, response *ember.Detached, origin *Connection) {
	self.mutex.Lock()
	set, ok := self.paths[path]
	var snapshot []*Connection
	if ok {
		snapshot = maps.Values(set)
	}
	self.mutex.Unlock()

	for _, client := range snapshot {
		if origin != nil && client.Id() == origin.Id() {
			continue
		}
		select {
		case <-client.Done():
			self.Unsubscribe(path, client)
			continue
		default:
		}
		client.QueueMessage(response)
		for _, callback := range self.onFanout.Get() {
			callback()
		}
	}
}
