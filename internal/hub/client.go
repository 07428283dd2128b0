package hub

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/event"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Client struct {
	ID     string
	userId string
	conn   *websocket.Conn
	hub    *Hub
	egress chan event.WsEvent

	// subscription handles held by this connection, keyed by topic
	subs   map[string]*fanout.Subscription
	subsMu sync.Mutex

	// cancel or stop goroutine
	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
}

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	workerPoolSize     = 16                     // number of workers to process inbound events
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound events
	registerTimeout    = 5 * time.Second        // timeout for client registration
	unregisterTimeout  = 5 * time.Second        // timeout for client unregistration
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to inbound channel
)

// RegisterClient creates a new client for a single WebSocket connection.
func RegisterClient(userId string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	clientID := uuid.New().String()

	client := &Client{
		ID:         clientID,
		userId:     userId,
		conn:       conn,
		hub:        h,
		egress:     make(chan event.WsEvent, sendBufSize),
		subs:       make(map[string]*fanout.Subscription),
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}

	select {
	case h.register <- client:
		go client.ReadMessages()
		go client.WriteMessages()
		return client
	case <-time.After(registerTimeout):
		log.Printf("failed to register client %s: timeout", clientID)
		cancel()
		conn.Close()
		return nil
	}
}

func (c *Client) ReadMessages() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-time.After(unregisterTimeout):
			log.Printf("failed to unregister client %s: timeout", c.ID)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					return
				}

				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseInternalServerErr,
					websocket.CloseProtocolError,
				) {
					log.Printf("unexpected close for %s: %v", c.ID, err)
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					log.Printf("client %s timed out - closing connection", c.ID)
					return
				}

				log.Printf("error reading from client %s: %v", c.ID, err)
				return
			}

			select {
			case c.hub.inbound <- inboundEvent{client: c, event: ev}:
			case <-time.After(inboundSendTimeout):
				log.Printf("inbound send timeout: dropping client %s", c.ID)
				c.cancel()
				c.conn.Close()
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			if err := c.conn.WriteMessage(websocket.CloseMessage, nil); err != nil {
				log.Printf("connection closed: %v", err)
			}
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("write error for client %s: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("ping error for client %s: %v", c.ID, err)
				return
			}
		}
	}
}

// pongHandler extends the read deadline and feeds the presence heartbeat:
// a live pong is proof the user's device is still reachable.
func (c *Client) pongHandler(string) error {
	c.hub.presence.Heartbeat(c.ctx, c.userId)
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues an outbound event, disconnecting the client if its egress
// stays full past the timeout.
func (c *Client) Send(ev event.WsEvent) {
	select {
	case c.egress <- ev:
	case <-time.After(sendTimeout):
		log.Printf("egress full, disconnecting client %s", c.ID)
		select {
		case c.hub.unregister <- c:
		case <-time.After(unregisterTimeout):
			log.Printf("failed to unregister client %s: timeout", c.ID)
		}
	case <-c.ctx.Done():
	}
}

// addSubscription registers a broker subscription for the topic.
// Forwarding starts separately, after the initial snapshot went out, so a
// subscriber always sees snapshot first and changes second. Subscribing
// twice to one topic is a no-op.
func (c *Client) addSubscription(topic string) *fanout.Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	if _, exists := c.subs[topic]; exists {
		return nil
	}

	sub := c.hub.broker.Subscribe(topic)
	c.subs[topic] = sub
	return sub
}

func (c *Client) removeSubscription(topic string) {
	c.subsMu.Lock()
	sub, ok := c.subs[topic]
	if ok {
		delete(c.subs, topic)
	}
	c.subsMu.Unlock()

	if ok {
		sub.Cancel()
	}
}

// cancelSubscriptions releases every broker registration held by this
// connection. Called exactly once on teardown so no fanout listener
// outlives its client.
func (c *Client) cancelSubscriptions() {
	c.subsMu.Lock()
	subs := make([]*fanout.Subscription, 0, len(c.subs))
	for topic, sub := range c.subs {
		subs = append(subs, sub)
		delete(c.subs, topic)
	}
	c.subsMu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// forward pumps one subscription's events into the connection. Exits when
// the subscription is cancelled or the client goes away.
func (c *Client) forward(sub *fanout.Subscription) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}

			out, err := event.Outbound(event.EventChange, sub.Topic, ev)
			if err != nil {
				log.Printf("marshal change event failed: %v", err)
				continue
			}
			c.Send(out)
		}
	}
}

// Close tears the client down exactly once. The egress channel is never
// closed: forwarders may still be selecting on it, and a send racing a
// close would panic. Senders drain out through the cancelled context
// instead, and the channel is collected with the client.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancelSubscriptions()
		c.cancel()

		// Wait for WriteMessages to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				log.Printf("safety timeout: force closed connection for client %s", c.ID)
			}
		}()
	})
}
