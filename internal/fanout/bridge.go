package fanout

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the wire form of an event on the Redis channel. The instance
// id keeps a publisher from re-consuming its own events.
type envelope struct {
	Instance string          `json:"instance"`
	Topic    string          `json:"topic"`
	Type     EventType       `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

// Bridge relays broker events across server instances through Redis
// pub/sub. Fanout stays asynchronous relative to the write path: a failed
// relay is logged and dropped, never surfaced to the writer.
type Bridge struct {
	rdb        *redis.Client
	broker     *Broker
	channel    string
	instanceID string
	logger     *zap.Logger
}

func NewBridge(rdb *redis.Client, broker *Broker, channel string, logger *zap.Logger) *Bridge {
	b := &Bridge{
		rdb:        rdb,
		broker:     broker,
		channel:    channel,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
	broker.SetMirror(b.relay)
	return b
}

func (b *Bridge) relay(ev Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		b.logger.Warn("relay marshal failed", zap.String("topic", ev.Topic), zap.Error(err))
		return
	}

	body, err := json.Marshal(envelope{
		Instance: b.instanceID,
		Topic:    ev.Topic,
		Type:     ev.Type,
		Payload:  payload,
	})
	if err != nil {
		b.logger.Warn("relay marshal failed", zap.String("topic", ev.Topic), zap.Error(err))
		return
	}

	if err := b.rdb.Publish(context.Background(), b.channel, body).Err(); err != nil {
		b.logger.Warn("relay publish failed", zap.String("topic", ev.Topic), zap.Error(err))
	}
}

// Run consumes events published by other instances until the context is
// cancelled.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("bridge decode failed", zap.Error(err))
				continue
			}
			if env.Instance == b.instanceID {
				continue
			}

			b.broker.PublishLocal(env.Topic, env.Type, env.Payload)
		}
	}
}
