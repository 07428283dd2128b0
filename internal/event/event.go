package event

import "encoding/json"

// Inbound event names (client -> server)
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventTyping      = "typing"
	EventMarkRead    = "mark_read"
)

// Outbound event names (server -> client)
const (
	EventSnapshot = "snapshot"
	EventChange   = "change"
	EventError    = "error"
)

// Stream kinds a client can subscribe to.
const (
	StreamMessages      = "messages"
	StreamConversations = "conversations"
	StreamPresence      = "presence"
	StreamTyping        = "typing"
)

type WsEvent struct {
	Event   string          `json:"event"`
	Topic   string          `json:"topic,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// SubscribeRequest selects one stream. UserID is the conversation partner
// for messages/typing streams, or the watched user for presence.
type SubscribeRequest struct {
	Stream string `json:"stream"`
	UserID string `json:"userId,omitempty"`
}

// TypingRequest flips the sender's typing flag towards one partner.
type TypingRequest struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// MarkReadRequest acknowledges everything unread from one partner.
type MarkReadRequest struct {
	UserID string `json:"userId"`
}

// ErrorPayload is sent to the client when an inbound event is rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outbound builds a server->client event with a JSON-encoded payload.
func Outbound(name, topic string, payload any) (WsEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Topic: topic, Message: body}, nil
}
