package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBroker() *Broker {
	return NewBroker(zap.NewNop())
}

func TestPublish_DeliversInCommitOrder(t *testing.T) {
	b := newTestBroker()
	sub := b.Subscribe(MessagesTopic("a_b"))

	b.Publish(MessagesTopic("a_b"), Added, "first")
	b.Publish(MessagesTopic("a_b"), Modified, "second")
	b.Publish(MessagesTopic("a_b"), Removed, "third")

	ev := <-sub.Events()
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, Added, ev.Type)
	assert.Equal(t, "first", ev.Payload)

	ev = <-sub.Events()
	assert.Equal(t, uint64(2), ev.Seq)
	assert.Equal(t, "second", ev.Payload)

	ev = <-sub.Events()
	assert.Equal(t, uint64(3), ev.Seq)
	assert.Equal(t, "third", ev.Payload)
}

func TestPublish_OnlyReachesSubscribedTopic(t *testing.T) {
	b := newTestBroker()
	subA := b.Subscribe(MessagesTopic("a_b"))
	subB := b.Subscribe(MessagesTopic("c_d"))

	b.Publish(MessagesTopic("a_b"), Added, "hello")

	ev := <-subA.Events()
	assert.Equal(t, "hello", ev.Payload)

	select {
	case ev := <-subB.Events():
		t.Fatalf("unexpected event on other topic: %+v", ev)
	default:
	}
}

func TestCancel_StopsDeliveryAndClosesChannel(t *testing.T) {
	b := newTestBroker()
	sub := b.Subscribe(ConversationsTopic("alice"))

	sub.Cancel()
	b.Publish(ConversationsTopic("alice"), Modified, "late")

	_, open := <-sub.Events()
	assert.False(t, open)

	// cancelling twice must not panic
	sub.Cancel()
}

func TestDispatch_CancelsOverflowingSubscriber(t *testing.T) {
	b := newTestBroker()
	slow := b.Subscribe(PresenceTopic("bob"))
	healthy := b.Subscribe(PresenceTopic("bob"))

	// fill the slow subscriber's buffer without draining, then overflow it
	for i := 0; i <= subscriptionBuffer; i++ {
		b.Publish(PresenceTopic("bob"), Modified, i)
		// keep the healthy subscriber drained
		<-healthy.Events()
	}

	// slow must have been cancelled: its channel drains then closes
	delivered := 0
	for range slow.Events() {
		delivered++
	}
	assert.Equal(t, subscriptionBuffer, delivered)

	counts := b.SubscriberCount()
	assert.Equal(t, 1, counts[PresenceTopic("bob")])
}

func TestSeq_IsPerTopic(t *testing.T) {
	b := newTestBroker()
	subA := b.Subscribe(TypingTopic("a_b"))
	subB := b.Subscribe(TypingTopic("c_d"))

	b.Publish(TypingTopic("a_b"), Modified, nil)
	b.Publish(TypingTopic("a_b"), Modified, nil)
	b.Publish(TypingTopic("c_d"), Modified, nil)

	<-subA.Events()
	ev := <-subA.Events()
	assert.Equal(t, uint64(2), ev.Seq)

	ev = <-subB.Events()
	assert.Equal(t, uint64(1), ev.Seq)
}

func TestMirror_SeesLocalButNotRelayedEvents(t *testing.T) {
	b := newTestBroker()

	var mirrored []Event
	b.SetMirror(func(ev Event) {
		mirrored = append(mirrored, ev)
	})

	b.Publish(MessagesTopic("a_b"), Added, "local")
	b.PublishLocal(MessagesTopic("a_b"), Added, "remote")

	require.Len(t, mirrored, 1)
	assert.Equal(t, "local", mirrored[0].Payload)
}

func TestSubscriberCount(t *testing.T) {
	b := newTestBroker()
	assert.Empty(t, b.SubscriberCount())

	s1 := b.Subscribe(MessagesTopic("a_b"))
	b.Subscribe(MessagesTopic("a_b"))

	counts := b.SubscriberCount()
	assert.Equal(t, 2, counts[MessagesTopic("a_b")])

	s1.Cancel()
	counts = b.SubscriberCount()
	assert.Equal(t, 1, counts[MessagesTopic("a_b")])
}
