package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clearRecorder struct {
	mu      sync.Mutex
	cleared []string
	fired   chan struct{}
}

func newClearRecorder() *clearRecorder {
	return &clearRecorder{fired: make(chan struct{}, 16)}
}

func (c *clearRecorder) clear(conversationID, userID string) {
	c.mu.Lock()
	c.cleared = append(c.cleared, conversationID+"|"+userID)
	c.mu.Unlock()
	c.fired <- struct{}{}
}

func (c *clearRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cleared)
}

func TestTouch_FiresClearAfterWindow(t *testing.T) {
	rec := newClearRecorder()
	r := NewRegistry(20*time.Millisecond, rec.clear)
	defer r.Close()

	r.Touch("a_b", "a")

	select {
	case <-rec.fired:
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}

	rec.mu.Lock()
	assert.Equal(t, []string{"a_b|a"}, rec.cleared)
	rec.mu.Unlock()
}

func TestStop_DisarmsTimer(t *testing.T) {
	rec := newClearRecorder()
	r := NewRegistry(20*time.Millisecond, rec.clear)
	defer r.Close()

	r.Touch("a_b", "a")
	r.Stop("a_b", "a")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestTouch_RearmsExistingTimer(t *testing.T) {
	rec := newClearRecorder()
	r := NewRegistry(50*time.Millisecond, rec.clear)
	defer r.Close()

	r.Touch("a_b", "a")
	time.Sleep(30 * time.Millisecond)
	r.Touch("a_b", "a")
	time.Sleep(30 * time.Millisecond)

	// still inside the rearmed window
	assert.Equal(t, 0, rec.count())

	select {
	case <-rec.fired:
	case <-time.After(time.Second):
		t.Fatal("rearmed expiry never fired")
	}
}

func TestClose_DropsPendingExpiries(t *testing.T) {
	rec := newClearRecorder()
	r := NewRegistry(20*time.Millisecond, rec.clear)

	r.Touch("a_b", "a")
	r.Touch("c_d", "c")
	r.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestTimersAreIndependentPerPair(t *testing.T) {
	rec := newClearRecorder()
	r := NewRegistry(20*time.Millisecond, rec.clear)
	defer r.Close()

	r.Touch("a_b", "a")
	r.Touch("a_b", "b")
	r.Stop("a_b", "a")

	select {
	case <-rec.fired:
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}

	rec.mu.Lock()
	assert.Equal(t, []string{"a_b|b"}, rec.cleared)
	rec.mu.Unlock()
}
