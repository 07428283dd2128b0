package hub

import (
	"context"
	"sync"
	"testing"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/event"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newDetachedClient builds a client without a live websocket connection or
// running pumps, for exercising the teardown paths directly.
func newDetachedClient() *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:         "test-client",
		userId:     "alice",
		egress:     make(chan event.WsEvent, sendBufSize),
		subs:       make(map[string]*fanout.Subscription),
		ctx:        ctx,
		cancel:     cancel,
		connClosed: make(chan struct{}),
	}
	// no write pump is running, so mark the connection as already closed
	c.connClosedOnce.Do(func() { close(c.connClosed) })
	return c
}

func TestSend_RacingCloseNeverPanics(t *testing.T) {
	for i := 0; i < 200; i++ {
		c := newDetachedClient()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Send(event.WsEvent{Event: event.EventChange, Topic: "messages/a_b"})
			}
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
		wg.Wait()
	}
}

func TestSend_AfterCloseReturns(t *testing.T) {
	c := newDetachedClient()
	c.Close()

	// must return promptly instead of blocking on a dead connection
	done := make(chan struct{})
	go func() {
		c.Send(event.WsEvent{Event: event.EventChange})
		close(done)
	}()
	<-done
}

func TestClose_IsIdempotentAndReleasesSubscriptions(t *testing.T) {
	c := newDetachedClient()
	c.hub = &Hub{broker: fanout.NewBroker(zap.NewNop())}

	sub := c.addSubscription("messages/a_b")
	require.NotNil(t, sub)

	// double subscribe to the same topic is a no-op
	assert.Nil(t, c.addSubscription("messages/a_b"))

	c.Close()
	c.Close()

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Empty(t, c.hub.broker.SubscriberCount())
}
