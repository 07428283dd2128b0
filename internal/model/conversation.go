package model

import (
	"sort"
	"strings"
	"time"
)

// Conversation represents a two-party chat document in MongoDB, keyed by the
// canonical participant-pair id. It is created lazily on first send.
type Conversation struct {
	ID           string          `json:"id" bson:"_id"`
	Participants []string        `json:"participants" bson:"participants"`
	LastMessage  *LastMessage    `json:"lastMessage" bson:"last_message"`
	LastUpdated  time.Time       `json:"lastUpdated" bson:"last_updated"`
	TypingStatus map[string]bool `json:"typingStatus" bson:"typing_status"`
	CreatedAt    time.Time       `json:"createdAt" bson:"created_at"`
}

// LastMessage is the denormalized preview of the log tail. It must always
// mirror the most recently appended message of the conversation.
type LastMessage struct {
	MessageId string    `json:"messageId" bson:"message_id"`
	Text      string    `json:"text" bson:"text"`
	SenderID  string    `json:"senderId" bson:"sender_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Read      bool      `json:"read" bson:"read"`
}

// ConversationSummary is the per-partner view served to the conversation
// list: profile of the other participant plus the merged chat metadata.
type ConversationSummary struct {
	ConversationID string        `json:"conversationId"`
	Other          PublicProfile `json:"user"`
	LastMessage    *LastMessage  `json:"lastMessage,omitempty"`
	LastUpdated    time.Time     `json:"lastUpdated"`
	UnreadCount    int           `json:"unreadCount"`
	IsTyping       bool          `json:"isTyping"`
}

// ConversationID canonicalizes an unordered pair of user ids into the
// deterministic conversation key: sorted ids joined with "_".
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// OtherParticipant returns the participant that is not the given user.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether the user belongs to this conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
