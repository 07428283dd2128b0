package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/db"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type conversationRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Conversation]
	msgs      MessageRepository
	logger    *zap.Logger
}

// ConversationRepository is the upsert-on-write registry keyed by the
// canonical participant-pair id. All of its updates are field-level merges
// so a typing write racing a send never clobbers the other's fields.
type ConversationRepository interface {
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	UpsertOnSend(ctx context.Context, conversationID string, participants []string, last model.LastMessage) error
	MarkSummaryRead(ctx context.Context, conversationID, otherUserID string) (bool, error)
	SetTyping(ctx context.Context, conversationID string, participants []string, userID string, typing bool) error
	RewindSummary(ctx context.Context, conversationID, deletedMessageID string) error
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
}

func NewConversationRepository(con *mongo.Database, repo *db.Repository[model.Conversation], msgs MessageRepository, logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		con:       con,
		mongoRepo: repo,
		msgs:      msgs,
		logger:    logger,
	}
}

func (r *conversationRepository) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conv, err := r.mongoRepo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("conversation %s", conversationID)
		}
		return nil, fmt.Errorf("get conversation failed: %w", err)
	}
	return conv, nil
}

// UpsertOnSend creates the conversation on first message or merges the new
// tail summary into an existing one. The update never touches typing_status.
func (r *conversationRepository) UpsertOnSend(ctx context.Context, conversationID string, participants []string, last model.LastMessage) error {
	if conversationID == "" {
		return ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"last_message": last,
			"last_updated": last.Timestamp,
		},
		"$setOnInsert": bson.M{
			"participants":  participants,
			"typing_status": bson.M{},
			"created_at":    last.Timestamp,
		},
	}

	_, err := r.mongoRepo.Collection().UpdateOne(
		ctx,
		bson.M{"_id": conversationID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if isRetryableError(err) {
			return fmt.Errorf("%w: %v", apperr.ErrNetworkUnavailable, err)
		}
		return fmt.Errorf("upsert conversation failed: %w", err)
	}

	r.logger.Debug("conversation summary upserted",
		zap.String("conversation_id", conversationID),
		zap.String("last_message_id", last.MessageId),
	)
	return nil
}

// MarkSummaryRead flips last_message.read only when the stored tail was sent
// by the other participant and is still unread. The guard lives in the
// filter, so concurrent callers cannot double-apply and a reader can never
// mark their own last-sent message as read.
func (r *conversationRepository) MarkSummaryRead(ctx context.Context, conversationID, otherUserID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":                    conversationID,
		"last_message.sender_id": otherUserID,
		"last_message.read":      false,
	}

	result, err := r.mongoRepo.Collection().UpdateOne(
		ctx,
		filter,
		bson.M{"$set": bson.M{"last_message.read": true}},
	)
	if err != nil {
		return false, fmt.Errorf("mark summary read failed: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// SetTyping merge-updates the single typing_status key for the user. The
// document is created on demand so typing in a brand-new chat does not fail.
func (r *conversationRepository) SetTyping(ctx context.Context, conversationID string, participants []string, userID string, typing bool) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"typing_status." + userID: typing,
		},
		"$setOnInsert": bson.M{
			"participants": participants,
			"created_at":   time.Now().UTC(),
		},
	}

	_, err := r.mongoRepo.Collection().UpdateOne(
		ctx,
		bson.M{"_id": conversationID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set typing failed: %w", err)
	}
	return nil
}

// RewindSummary repairs last_message after a delete. It is a no-op unless
// the deleted message was the tail; otherwise the summary is recomputed from
// the new tail, or cleared when the log is empty.
func (r *conversationRepository) RewindSummary(ctx context.Context, conversationID, deletedMessageID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	tail, err := r.msgs.LatestMessage(ctx, conversationID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	guard := bson.M{
		"_id":                     conversationID,
		"last_message.message_id": deletedMessageID,
	}

	var update bson.M
	if tail == nil {
		update = bson.M{"$set": bson.M{"last_message": nil}}
	} else {
		update = bson.M{"$set": bson.M{
			"last_message": model.LastMessage{
				MessageId: tail.MessageId,
				Text:      tail.Text,
				SenderID:  tail.SenderID,
				Timestamp: tail.Timestamp,
				Read:      tail.Read,
			},
		}}
	}

	result, err := r.mongoRepo.Collection().UpdateOne(ctx, guard, update)
	if err != nil {
		return fmt.Errorf("rewind summary failed: %w", err)
	}

	if result.ModifiedCount > 0 {
		r.logger.Debug("conversation summary rewound",
			zap.String("conversation_id", conversationID),
			zap.String("deleted_message_id", deletedMessageID),
		)
	}
	return nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userID).Build()
	sort := bson.D{{Key: "last_updated", Value: -1}}

	convs, err := r.mongoRepo.FindAll(ctx, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return convs, nil
}
