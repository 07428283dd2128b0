package model

import "strings"

// ReadReceipt - batch read transition pushed to message subscribers
type ReadReceipt struct {
	ConversationID string   `json:"conversationId"`
	MessageIds     []string `json:"messageIds"`
	ReaderID       string   `json:"readerId"`
}

// TypingUpdate - ephemeral typing flag, never part of durable history
type TypingUpdate struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

// MessageRemoved - hard delete notification
type MessageRemoved struct {
	ConversationID string `json:"conversationId"`
	MessageId      string `json:"messageId"`
}

// ParticipantsFromID recovers the participant pair from a canonical
// conversation id. User ids never contain the separator.
func ParticipantsFromID(conversationID string) []string {
	return strings.Split(conversationID, "_")
}
