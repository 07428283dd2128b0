package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/event"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/presence"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/service"

	"github.com/gorilla/websocket"
)

const snapshotTimeout = 10 * time.Second

var (
	errMissingUser   = errors.New("userId is required for this stream")
	errUnknownStream = errors.New("unknown stream")
)

type inboundEvent struct {
	event  event.WsEvent
	client *Client
}

// Hub owns every live websocket connection. Each authenticated user may
// hold several connections; each connection holds its own set of fanout
// subscriptions.
type Hub struct {
	clients   map[string]map[string]*Client // userID -> clientID -> client
	clientsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	broker   *fanout.Broker
	chat     service.ChatService
	presence *presence.Tracker

	allowedOrigins map[string]bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(broker *fanout.Broker, chat service.ChatService, tracker *presence.Tracker, allowedOrigins []string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:        make(map[string]map[string]*Client),
		register:       make(chan *Client, 1024),
		unregister:     make(chan *Client, 1024),
		inbound:        make(chan inboundEvent, 4096), // buffer for burst handling
		broker:         broker,
		chat:           chat,
		presence:       tracker,
		allowedOrigins: make(map[string]bool, len(allowedOrigins)),
		ctx:            ctx,
		cancel:         cancel,
	}

	for _, origin := range allowedOrigins {
		h.allowedOrigins[origin] = true
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-h.inbound:
					if !ok {
						return
					}
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsMu.Lock()
	conns, ok := h.clients[c.userId]
	if !ok {
		conns = make(map[string]*Client)
		h.clients[c.userId] = conns
	}
	conns[c.ID] = c
	h.clientsMu.Unlock()

	h.presence.Connect(c.ctx, c.userId)
	log.Printf("client %s registered for user %s", c.ID, c.userId)
}

func (h *Hub) removeClient(c *Client) {
	h.clientsMu.Lock()
	removed := false
	if conns, ok := h.clients[c.userId]; ok {
		if _, exists := conns[c.ID]; exists {
			delete(conns, c.ID)
			removed = true
		}
		if len(conns) == 0 {
			delete(h.clients, c.userId)
		}
	}
	h.clientsMu.Unlock()

	if !removed {
		return
	}

	c.Close()
	h.presence.Disconnect(c.userId)
	log.Printf("client %s removed for user %s", c.ID, c.userId)
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventSubscribe:
		var req event.SubscribeRequest
		if err := json.Unmarshal(ev.Message, &req); err != nil {
			h.sendError(c, "bad_request", "malformed subscribe request")
			return
		}
		h.handleSubscribe(c, req)

	case event.EventUnsubscribe:
		var req event.SubscribeRequest
		if err := json.Unmarshal(ev.Message, &req); err != nil {
			h.sendError(c, "bad_request", "malformed unsubscribe request")
			return
		}
		topic, _, err := h.resolveStream(c, req)
		if err != nil {
			h.sendError(c, "bad_request", err.Error())
			return
		}
		c.removeSubscription(topic)

	case event.EventTyping:
		var req event.TypingRequest
		if err := json.Unmarshal(ev.Message, &req); err != nil || req.UserID == "" {
			h.sendError(c, "bad_request", "malformed typing request")
			return
		}
		ctx, cancel := context.WithTimeout(h.ctx, snapshotTimeout)
		h.chat.SetTyping(ctx, c.userId, req.UserID, req.IsTyping)
		cancel()

	case event.EventMarkRead:
		var req event.MarkReadRequest
		if err := json.Unmarshal(ev.Message, &req); err != nil || req.UserID == "" {
			h.sendError(c, "bad_request", "malformed mark_read request")
			return
		}
		ctx, cancel := context.WithTimeout(h.ctx, snapshotTimeout)
		if err := h.chat.MarkRead(ctx, c.userId, req.UserID); err != nil {
			log.Printf("mark read failed for user %s: %v", c.userId, err)
		}
		cancel()

	default:
		log.Printf("unknown event type: %s", ev.Event)
	}
}

// handleSubscribe registers the subscription, ships the initial snapshot,
// then starts forwarding change events. Events published between
// registration and snapshot wait in the subscription buffer, so the client
// observes snapshot-then-changes in commit order.
func (h *Hub) handleSubscribe(c *Client, req event.SubscribeRequest) {
	topic, snapshot, err := h.resolveStream(c, req)
	if err != nil {
		h.sendError(c, "bad_request", err.Error())
		return
	}

	sub := c.addSubscription(topic)
	if sub == nil {
		return // already subscribed
	}

	ctx, cancel := context.WithTimeout(h.ctx, snapshotTimeout)
	initial, err := snapshot(ctx)
	cancel()
	if err != nil {
		log.Printf("snapshot failed for topic %s: %v", topic, err)
		c.removeSubscription(topic)
		h.sendError(c, "snapshot_failed", "could not load initial state")
		return
	}

	out, err := event.Outbound(event.EventSnapshot, topic, initial)
	if err != nil {
		log.Printf("marshal snapshot failed for topic %s: %v", topic, err)
		c.removeSubscription(topic)
		return
	}
	c.Send(out)

	go c.forward(sub)
}

type snapshotFunc func(ctx context.Context) (any, error)

// resolveStream maps a subscribe request onto a broker topic and the
// loader for its initial snapshot.
func (h *Hub) resolveStream(c *Client, req event.SubscribeRequest) (string, snapshotFunc, error) {
	switch req.Stream {
	case event.StreamMessages:
		if req.UserID == "" {
			return "", nil, errMissingUser
		}
		conversationID := model.ConversationID(c.userId, req.UserID)
		return fanout.MessagesTopic(conversationID), func(ctx context.Context) (any, error) {
			page, err := h.chat.ListMessages(ctx, c.userId, req.UserID, 1)
			if err != nil {
				return nil, err
			}
			return page.Data, nil
		}, nil

	case event.StreamConversations:
		return fanout.ConversationsTopic(c.userId), func(ctx context.Context) (any, error) {
			return h.chat.ListConversations(ctx, c.userId)
		}, nil

	case event.StreamPresence:
		if req.UserID == "" {
			return "", nil, errMissingUser
		}
		return fanout.PresenceTopic(req.UserID), func(ctx context.Context) (any, error) {
			return h.presence.Snapshot(ctx, req.UserID)
		}, nil

	case event.StreamTyping:
		if req.UserID == "" {
			return "", nil, errMissingUser
		}
		conversationID := model.ConversationID(c.userId, req.UserID)
		return fanout.TypingTopic(conversationID), func(ctx context.Context) (any, error) {
			return h.chat.TypingSnapshot(ctx, conversationID)
		}, nil

	default:
		return "", nil, errUnknownStream
	}
}

func (h *Hub) sendError(c *Client, code, message string) {
	out, err := event.Outbound(event.EventError, "", event.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	c.Send(out)
}

func (h *Hub) Stop() {
	h.cancel()

	h.clientsMu.RLock()
	for _, conns := range h.clients {
		for _, client := range conns {
			client.Close()
		}
	}
	h.clientsMu.RUnlock()

	// read pumps may still be sending on inbound, so it is never closed;
	// workers exit through the cancelled context instead
	h.wg.Wait()
}

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS upgrades an already-authenticated request and registers the
// connection for the user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	upgrader := websocketUpgrader
	upgrader.CheckOrigin = h.checkOrigin

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	RegisterClient(userID, conn, h)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	return h.allowedOrigins[r.Header.Get("Origin")]
}
