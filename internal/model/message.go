package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message represents a chat message in MongoDB. MessageId is the public,
// monotonically-orderable identifier (<unixMilli>_<senderId>); the Mongo
// ObjectID is kept only to break ordering ties by insertion sequence.
type Message struct {
	ID             primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	MessageId      string             `json:"id" bson:"message_id"`
	ConversationID string             `json:"conversationId" bson:"conversation_id"`
	SenderID       string             `json:"senderId" bson:"sender_id"`
	SenderName     string             `json:"senderName" bson:"sender_name"`
	Text           string             `json:"text" bson:"text"`
	Timestamp      time.Time          `json:"timestamp" bson:"timestamp"`
	Read           bool               `json:"read" bson:"read"`
	ReplyTo        *ReplySnapshot     `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	Forwarded      bool               `json:"forwarded,omitempty" bson:"forwarded,omitempty"`
	ForwardedFrom  string             `json:"forwardedFrom,omitempty" bson:"forwarded_from,omitempty"`
}

// ReplySnapshot is a denormalized copy of the replied-to message, taken at
// send time. It is not a live reference: deleting the original leaves the
// snapshot unchanged.
type ReplySnapshot struct {
	MessageId  string `json:"id" bson:"message_id"`
	Text       string `json:"text" bson:"text"`
	SenderID   string `json:"senderId" bson:"sender_id"`
	SenderName string `json:"senderName" bson:"sender_name"`
}
