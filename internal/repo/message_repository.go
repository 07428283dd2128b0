package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/db"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const messagePageSize = 15

type messageRepository struct {
	con       *mongo.Database
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

// MessageRepository is the durable, ordered per-conversation append log.
type MessageRepository interface {
	Append(ctx context.Context, msg *model.Message) error
	Get(ctx context.Context, conversationID, messageID string) (*model.Message, error)
	Delete(ctx context.Context, conversationID, messageID string) error
	ListUnreadFrom(ctx context.Context, conversationID, otherUserID string) ([]string, error)
	MarkRead(ctx context.Context, conversationID string, messageIDs []string) (int64, error)
	ListByConversation(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
	LatestMessage(ctx context.Context, conversationID string) (*model.Message, error)
}

func NewMessageRepository(con *mongo.Database, repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		con:       con,
		mongoRepo: repo,
		logger:    logger,
	}
}

// Append inserts a single message. The insert is atomic per message; transient
// failures are retried with backoff unless the caller is inside a transaction
// (a session context retries as a whole instead).
func (m *messageRepository) Append(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.ConversationID == "" {
		return ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return err
			}
		}

		_, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			m.logger.Info("message appended",
				zap.String("message_id", msg.MessageId),
				zap.String("conversation_id", msg.ConversationID),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("append attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to append message after all retries",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID),
	)

	if isRetryableError(lastErr) {
		return fmt.Errorf("%w: %v", apperr.ErrNetworkUnavailable, lastErr)
	}
	return fmt.Errorf("append message failed: %w", lastErr)
}

func (m *messageRepository) Get(ctx context.Context, conversationID, messageID string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Eq("message_id", messageID).
		Build()

	msg, err := m.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("message %s", messageID)
		}
		return nil, fmt.Errorf("get message failed: %w", err)
	}
	return msg, nil
}

// Delete hard-removes a message. Reply snapshots elsewhere are untouched.
func (m *messageRepository) Delete(ctx context.Context, conversationID, messageID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Eq("message_id", messageID).
		Build()

	result, err := m.mongoRepo.Delete(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	if result.DeletedCount == 0 {
		return apperr.NotFoundf("message %s", messageID)
	}

	m.logger.Info("message deleted",
		zap.String("message_id", messageID),
		zap.String("conversation_id", conversationID),
	)
	return nil
}

// ListUnreadFrom returns the ids of messages sent by otherUserID that the
// reader has not seen yet. Used to compute batch read-receipt sets.
func (m *messageRepository) ListUnreadFrom(ctx context.Context, conversationID, otherUserID string) ([]string, error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Eq("sender_id", otherUserID).
		Eq("read", false).
		Build()

	msgs, err := m.mongoRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list unread failed: %w", err)
	}

	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.MessageId)
	}
	return ids, nil
}

// MarkRead flips read=true on the given set in a single batch update. The
// flag is monotonic: documents already read are simply not matched again.
func (m *messageRepository) MarkRead(ctx context.Context, conversationID string, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		In("message_id", messageIDs).
		Eq("read", false).
		Build()

	result, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{"read": true})
	if err != nil {
		return 0, fmt.Errorf("mark read failed: %w", err)
	}

	m.logger.Debug("messages marked read",
		zap.String("conversation_id", conversationID),
		zap.Int64("modified", result.ModifiedCount),
	)
	return result.ModifiedCount, nil
}

// ListByConversation returns one page of the log, newest first. Timestamp
// ties fall back to _id so readers always observe insertion order.
func (m *messageRepository) ListByConversation(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("conversation_id", conversationID).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message listing",
				zap.String("conversation_id", conversationID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: messagePageSize,
			SortBy:   "timestamp",
			SortDesc: true,
		})
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, m.handleReadError(lastErr, conversationID)
}

// LatestMessage returns the current tail of the log, or ErrNotFound when the
// conversation has no messages left.
func (m *messageRepository) LatestMessage(ctx context.Context, conversationID string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{
		{Key: "timestamp", Value: -1},
		{Key: "_id", Value: -1},
	})

	var msg model.Message
	err := m.mongoRepo.Collection().
		FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).
		Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("conversation %s has no messages", conversationID)
		}
		return nil, fmt.Errorf("latest message failed: %w", err)
	}
	return &msg, nil
}

func (m *messageRepository) handleReadError(err error, conversationID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.String("conversation_id", conversationID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("conversation_id", conversationID))
		return err
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("conversation_id", conversationID))
	return fmt.Errorf("list messages failed: %w", err)
}
