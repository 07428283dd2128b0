// Package typing holds the server-side expiry safety net for typing flags.
// Clients own the 2s debounce and emit the false transition themselves; the
// registry only force-clears flags left behind by crashed clients.
package typing

import (
	"sync"
	"time"
)

// ClearFunc force-clears one user's typing flag in one conversation.
type ClearFunc func(conversationID, userID string)

type entry struct {
	timer *time.Timer
}

// Registry keeps one expiry timer per (conversation, user). A true
// transition arms or rearms the timer; a false transition or a message send
// disarms it.
type Registry struct {
	mu     sync.Mutex
	timers map[string]*entry
	window time.Duration
	clear  ClearFunc
}

func NewRegistry(window time.Duration, clear ClearFunc) *Registry {
	return &Registry{
		timers: make(map[string]*entry),
		window: window,
		clear:  clear,
	}
}

func key(conversationID, userID string) string {
	return conversationID + "|" + userID
}

// Touch arms the expiry timer for the pair, restarting it if already armed.
func (r *Registry) Touch(conversationID, userID string) {
	k := key(conversationID, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.timers[k]; ok {
		e.timer.Reset(r.window)
		return
	}

	r.timers[k] = &entry{
		timer: time.AfterFunc(r.window, func() {
			r.expire(k, conversationID, userID)
		}),
	}
}

// Stop disarms the timer without clearing anything.
func (r *Registry) Stop(conversationID, userID string) {
	k := key(conversationID, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.timers[k]; ok {
		e.timer.Stop()
		delete(r.timers, k)
	}
}

func (r *Registry) expire(k, conversationID, userID string) {
	r.mu.Lock()
	_, ok := r.timers[k]
	delete(r.timers, k)
	r.mu.Unlock()

	if ok {
		r.clear(conversationID, userID)
	}
}

// Close disarms every timer. Pending expiries are dropped.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, e := range r.timers {
		e.timer.Stop()
		delete(r.timers, k)
	}
}
