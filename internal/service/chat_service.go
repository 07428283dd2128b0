package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/db"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/repo"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/typing"

	"go.uber.org/zap"
)

const (
	// MaxMessageLength caps message text; longer input is rejected before
	// any write is attempted.
	MaxMessageLength = 500

	// TypingIdleWindow is the client-side debounce since the last
	// keystroke. Documented for API consumers; clients own this timer.
	TypingIdleWindow = 2 * time.Second

	// typingExpiry is the server-side safety net for typing flags left
	// behind by crashed clients.
	typingExpiry = 10 * time.Second
)

// ChatService exposes the direct-messaging operations consumed by the REST
// handlers and the websocket hub.
type ChatService interface {
	SendMessage(ctx context.Context, senderID, otherUserID, text string, replyTo *model.ReplySnapshot) (*model.Message, error)
	DeleteMessage(ctx context.Context, callerID, conversationID, messageID string) error
	ForwardMessage(ctx context.Context, callerID, conversationID, messageID, toUserID string) (*model.Message, error)
	MarkRead(ctx context.Context, readerID, otherUserID string) error
	SetTyping(ctx context.Context, userID, otherUserID string, isTyping bool)
	ListMessages(ctx context.Context, callerID, otherUserID string, page int64) (*db.PaginatedResult[model.Message], error)
	ListConversations(ctx context.Context, callerID string) ([]model.ConversationSummary, error)
	ResolveMessage(ctx context.Context, callerID, conversationID, messageID string) (*model.Message, error)
	TypingSnapshot(ctx context.Context, conversationID string) (map[string]bool, error)
	Close()
}

type chatService struct {
	msgs   repo.MessageRepository
	convs  repo.ConversationRepository
	users  repo.UserRepository
	tx     repo.TxRunner
	broker *fanout.Broker
	typing *typing.Registry
	logger *zap.Logger

	now func() time.Time

	// last minted millisecond stamp; ids stay unique when one sender
	// fires several messages inside the same wall-clock millisecond
	stampMu   sync.Mutex
	lastStamp int64
}

func NewChatService(
	msgs repo.MessageRepository,
	convs repo.ConversationRepository,
	users repo.UserRepository,
	tx repo.TxRunner,
	broker *fanout.Broker,
	logger *zap.Logger,
) ChatService {
	s := &chatService{
		msgs:   msgs,
		convs:  convs,
		users:  users,
		tx:     tx,
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
	s.typing = typing.NewRegistry(typingExpiry, s.expireTyping)
	return s
}

// nextTimestamp returns a strictly increasing wall-clock stamp at
// millisecond resolution. Message ids embed the stamp, so bumping past the
// last minted value keeps ids unique under same-millisecond sends and keeps
// id order aligned with timestamp order.
func (s *chatService) nextTimestamp() time.Time {
	ms := s.now().UTC().UnixMilli()

	s.stampMu.Lock()
	if ms <= s.lastStamp {
		ms = s.lastStamp + 1
	}
	s.lastStamp = ms
	s.stampMu.Unlock()

	return time.UnixMilli(ms).UTC()
}

// SendMessage validates, denormalizes the sender name and reply snapshot,
// then registers the conversation summary and appends the message in one
// transaction before fanning out.
func (s *chatService) SendMessage(ctx context.Context, senderID, otherUserID, text string, replyTo *model.ReplySnapshot) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validationf("message text is empty")
	}
	if len(text) > MaxMessageLength {
		return nil, apperr.Validationf("message exceeds %d characters", MaxMessageLength)
	}
	if senderID == otherUserID {
		return nil, apperr.Validationf("cannot send a message to yourself")
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, otherUserID); err != nil {
		return nil, err
	}

	now := s.nextTimestamp()
	conversationID := model.ConversationID(senderID, otherUserID)

	msg := &model.Message{
		MessageId:      fmt.Sprintf("%d_%s", now.UnixMilli(), senderID),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     sender.Name,
		Text:           text,
		Timestamp:      now,
		Read:           false,
	}
	if replyTo != nil {
		snapshot := *replyTo
		msg.ReplyTo = &snapshot
	}

	if err := s.persistMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.fanOutAppend(msg)
	s.stopTyping(ctx, conversationID, senderID)
	return msg, nil
}

// ForwardMessage copies an existing message into another conversation as a
// brand-new message. The copy gets its own id and timestamp, carries only
// the original sender's display name, and never references the original.
func (s *chatService) ForwardMessage(ctx context.Context, callerID, conversationID, messageID, toUserID string) (*model.Message, error) {
	original, err := s.ResolveMessage(ctx, callerID, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if callerID == toUserID {
		return nil, apperr.Validationf("cannot forward a message to yourself")
	}

	sender, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, toUserID); err != nil {
		return nil, err
	}

	now := s.nextTimestamp()
	targetConversation := model.ConversationID(callerID, toUserID)

	msg := &model.Message{
		MessageId:      fmt.Sprintf("%d_%s", now.UnixMilli(), callerID),
		ConversationID: targetConversation,
		SenderID:       callerID,
		SenderName:     sender.Name,
		Text:           original.Text,
		Timestamp:      now,
		Read:           false,
		Forwarded:      true,
		ForwardedFrom:  original.SenderName,
	}

	if err := s.persistMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.fanOutAppend(msg)
	return msg, nil
}

// persistMessage runs the registry upsert and the log append atomically, so
// the summary can never reference a message that failed to become durable.
func (s *chatService) persistMessage(ctx context.Context, msg *model.Message) error {
	last := model.LastMessage{
		MessageId: msg.MessageId,
		Text:      msg.Text,
		SenderID:  msg.SenderID,
		Timestamp: msg.Timestamp,
		Read:      false,
	}
	participants := model.ParticipantsFromID(msg.ConversationID)

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.convs.UpsertOnSend(ctx, msg.ConversationID, participants, last); err != nil {
			return err
		}
		return s.msgs.Append(ctx, msg)
	})
}

func (s *chatService) fanOutAppend(msg *model.Message) {
	s.broker.Publish(fanout.MessagesTopic(msg.ConversationID), fanout.Added, msg)
	for _, participant := range model.ParticipantsFromID(msg.ConversationID) {
		s.broker.Publish(fanout.ConversationsTopic(participant), fanout.Modified, msg)
	}
}

// DeleteMessage hard-removes one of the caller's own messages and repairs
// the conversation summary when the tail was removed. Reply snapshots
// pointing at the message stay as they are.
func (s *chatService) DeleteMessage(ctx context.Context, callerID, conversationID, messageID string) error {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(callerID) {
		return apperr.ErrPermissionDenied
	}

	msg, err := s.msgs.Get(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return apperr.ErrPermissionDenied
	}

	if err := s.msgs.Delete(ctx, conversationID, messageID); err != nil {
		return err
	}
	if err := s.convs.RewindSummary(ctx, conversationID, messageID); err != nil {
		s.logger.Warn("summary rewind failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}

	s.broker.Publish(fanout.MessagesTopic(conversationID), fanout.Removed, model.MessageRemoved{
		ConversationID: conversationID,
		MessageId:      messageID,
	})
	for _, participant := range conv.Participants {
		s.broker.Publish(fanout.ConversationsTopic(participant), fanout.Modified, model.MessageRemoved{
			ConversationID: conversationID,
			MessageId:      messageID,
		})
	}
	return nil
}

// MarkRead flips every unread message from the other party in one batch,
// then corrects the summary through the guarded update. Idempotent: with
// nothing unread it is a no-op.
func (s *chatService) MarkRead(ctx context.Context, readerID, otherUserID string) error {
	conversationID := model.ConversationID(readerID, otherUserID)

	ids, err := s.msgs.ListUnreadFrom(ctx, conversationID, otherUserID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.msgs.MarkRead(ctx, conversationID, ids); err != nil {
		return err
	}
	if _, err := s.convs.MarkSummaryRead(ctx, conversationID, otherUserID); err != nil {
		return err
	}

	receipt := model.ReadReceipt{
		ConversationID: conversationID,
		MessageIds:     ids,
		ReaderID:       readerID,
	}
	s.broker.Publish(fanout.MessagesTopic(conversationID), fanout.Modified, receipt)
	s.broker.Publish(fanout.ConversationsTopic(readerID), fanout.Modified, receipt)
	s.broker.Publish(fanout.ConversationsTopic(otherUserID), fanout.Modified, receipt)
	return nil
}

// SetTyping merge-writes the caller's flag and notifies subscribers. Typing
// failures never interrupt the chat flow: they are logged and suppressed.
func (s *chatService) SetTyping(ctx context.Context, userID, otherUserID string, isTyping bool) {
	conversationID := model.ConversationID(userID, otherUserID)
	participants := model.ParticipantsFromID(conversationID)

	if err := s.convs.SetTyping(ctx, conversationID, participants, userID, isTyping); err != nil {
		s.logger.Warn("typing update failed",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	s.broker.Publish(fanout.TypingTopic(conversationID), fanout.Modified, model.TypingUpdate{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
	})

	if isTyping {
		s.typing.Touch(conversationID, userID)
	} else {
		s.typing.Stop(conversationID, userID)
	}
}

// stopTyping clears the sender's flag after a send, mirroring the client
// behavior of dropping the indicator the moment a message goes out.
func (s *chatService) stopTyping(ctx context.Context, conversationID, userID string) {
	s.typing.Stop(conversationID, userID)

	participants := model.ParticipantsFromID(conversationID)
	if err := s.convs.SetTyping(ctx, conversationID, participants, userID, false); err != nil {
		s.logger.Warn("typing clear failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}

	s.broker.Publish(fanout.TypingTopic(conversationID), fanout.Modified, model.TypingUpdate{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       false,
	})
}

// expireTyping is the registry's safety-net clear for crashed clients.
func (s *chatService) expireTyping(conversationID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	participants := model.ParticipantsFromID(conversationID)
	if err := s.convs.SetTyping(ctx, conversationID, participants, userID, false); err != nil {
		s.logger.Warn("typing expiry clear failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}

	s.logger.Debug("typing flag expired",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID))

	s.broker.Publish(fanout.TypingTopic(conversationID), fanout.Modified, model.TypingUpdate{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       false,
	})
}

func (s *chatService) ListMessages(ctx context.Context, callerID, otherUserID string, page int64) (*db.PaginatedResult[model.Message], error) {
	conversationID := model.ConversationID(callerID, otherUserID)
	return s.msgs.ListByConversation(ctx, conversationID, page)
}

// ListConversations assembles the per-partner summaries. The other side's
// typing flag is reported false whenever they are offline, whatever the
// stored value says.
func (s *chatService) ListConversations(ctx context.Context, callerID string) ([]model.ConversationSummary, error) {
	convs, err := s.convs.ListForUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	others, err := s.users.ListOthers(ctx, callerID)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]model.User, len(others))
	for _, u := range others {
		profiles[u.ID] = u
	}

	summaries := make([]model.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		otherID := conv.OtherParticipant(callerID)
		other, ok := profiles[otherID]
		if !ok {
			continue
		}

		unread := 0
		if conv.LastMessage != nil && conv.LastMessage.SenderID == otherID && !conv.LastMessage.Read {
			unread = 1
		}

		summaries = append(summaries, model.ConversationSummary{
			ConversationID: conv.ID,
			Other:          other.Public(),
			LastMessage:    conv.LastMessage,
			LastUpdated:    conv.LastUpdated,
			UnreadCount:    unread,
			IsTyping:       other.IsOnline && conv.TypingStatus[otherID],
		})
	}
	return summaries, nil
}

// ResolveMessage looks a message up for reply navigation. A deleted target
// resolves to ErrNotFound.
func (s *chatService) ResolveMessage(ctx context.Context, callerID, conversationID, messageID string) (*model.Message, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, apperr.ErrPermissionDenied
	}
	return s.msgs.Get(ctx, conversationID, messageID)
}

// TypingSnapshot returns the conversation's typing map with the read-side
// presence rule already applied.
func (s *chatService) TypingSnapshot(ctx context.Context, conversationID string) (map[string]bool, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	snapshot := make(map[string]bool, len(conv.TypingStatus))
	for userID, flag := range conv.TypingStatus {
		if flag {
			user, err := s.users.GetByID(ctx, userID)
			flag = err == nil && user.IsOnline
		}
		snapshot[userID] = flag
	}
	return snapshot, nil
}

// Close disarms the typing safety-net timers.
func (s *chatService) Close() {
	s.typing.Close()
}
