package channel

import "sync"

// Registry tracks the live channel of every mounted view. Replacing a view's
// channel closes the previous one to completion first, so a view never owns
// more than one connection.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// NewRegistry 创建连接注册表
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Replace installs ch for viewID after fully closing whatever was there.
func (r *Registry) Replace(viewID string, ch *Channel) {
	r.mu.Lock()
	old, exists := r.channels[viewID]
	delete(r.channels, viewID)
	r.mu.Unlock()

	if exists && old != ch {
		_ = old.Close()
	}

	if ch == nil {
		return
	}
	r.mu.Lock()
	r.channels[viewID] = ch
	r.mu.Unlock()
}

// Get returns the channel registered for viewID.
func (r *Registry) Get(viewID string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[viewID]
	return ch, ok
}

// Remove closes and forgets the channel of viewID.
func (r *Registry) Remove(viewID string) {
	r.Replace(viewID, nil)
}

// Release closes ch and forgets it if it is still the channel of viewID.
// A channel that has already been replaced is only closed.
func (r *Registry) Release(viewID string, ch *Channel) {
	if ch == nil {
		return
	}
	r.mu.Lock()
	if r.channels[viewID] == ch {
		delete(r.channels, viewID)
	}
	r.mu.Unlock()
	_ = ch.Close()
}

// CloseAll closes every registered channel.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]*Channel)
	r.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}
}

// OpenCount counts registered channels that are currently Open.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ch := range r.channels {
		if ch.State() == StateOpen {
			n++
		}
	}
	return n
}

// Len is the number of registered views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
