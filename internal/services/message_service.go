package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	snippetLimit    = 150
)

// Read receipt scopes.
const (
	ReceiptScopePage = "page"
	ReceiptScopeAll  = "all"
)

// MessageService persists messages and keeps the owning conversation's
// read model in step.
type MessageService struct {
	messages      repositories.MessageRepository
	conversations *ConversationService
	receiptScope  string
	now           func() time.Time
}

// NewMessageService constructs a MessageService. An unknown receipt scope
// falls back to the page scope.
func NewMessageService(messages repositories.MessageRepository, conversations *ConversationService, receiptScope string) *MessageService {
	if receiptScope != ReceiptScopeAll {
		receiptScope = ReceiptScopePage
	}
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		receiptScope:  receiptScope,
		now:           time.Now,
	}
}

func (s *MessageService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// SendMessage stores a message from sender and updates the conversation
// preview and the recipient's unread counter. It returns the stored message
// view and the post-update conversation.
func (s *MessageService) SendMessage(ctx context.Context, senderID int64, conversationID, content string, attachments []models.Attachment) (models.MessageView, models.Conversation, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, models.Conversation{}, fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	if strings.TrimSpace(conversationID) == "" {
		return models.MessageView{}, models.Conversation{}, fmt.Errorf("%w: conversationId is required", ErrValidation)
	}

	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return models.MessageView{}, models.Conversation{}, err
	}
	senderType, ok := conv.SideOf(senderID)
	if !ok {
		return models.MessageView{}, models.Conversation{}, fmt.Errorf("%w: user %d is not a participant of conversation %s", ErrForbidden, senderID, conv.ID)
	}

	now := s.timestamp()
	msg, err := s.messages.CreateMessage(ctx, models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderType:     senderType,
		Content:        content,
		Attachments:    models.Attachments(attachments),
		SentAt:         now,
		DeliveredAt:    now,
		ReadBy:         models.ReadReceipts{},
	})
	if err != nil {
		return models.MessageView{}, models.Conversation{}, fmt.Errorf("store message: %w", err)
	}
	observability.IncMessageSent(string(senderType))

	updated, err := s.conversations.UpdateLastMessage(ctx, conv, Snippet(content), now, senderType == models.ParticipantSeller)
	if err != nil {
		return models.MessageView{}, models.Conversation{}, err
	}
	return msg.View(), updated, nil
}

// GetMessages returns one newest-first page of a conversation's history.
// A non-nil before restricts the page to messages sent strictly earlier.
func (s *MessageService) GetMessages(ctx context.Context, conversationID string, page, size int, before *time.Time) ([]models.MessageView, error) {
	page, size = ClampPage(page, size)
	msgs, err := s.messages.ListMessages(ctx, conversationID, before, page*size, size)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, m.View())
	}
	return views, nil
}

// MarkAsRead stamps the reader's receipt on the conversation's messages and
// zeroes the reader's unread counter.
func (s *MessageService) MarkAsRead(ctx context.Context, readerID int64, conversationID string) (models.Conversation, error) {
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	reader, ok := conv.SideOf(readerID)
	if !ok {
		return models.Conversation{}, fmt.Errorf("%w: user %d is not a participant of conversation %s", ErrForbidden, readerID, conv.ID)
	}

	now := s.timestamp()
	if s.receiptScope == ReceiptScopeAll {
		if _, err := s.messages.MarkConversationRead(ctx, conv.ID, reader, now); err != nil {
			return models.Conversation{}, fmt.Errorf("stamp read receipts: %w", err)
		}
	} else {
		recent, err := s.messages.ListMessages(ctx, conv.ID, nil, 0, DefaultPageSize)
		if err != nil {
			return models.Conversation{}, fmt.Errorf("load recent messages: %w", err)
		}
		ids := make([]string, 0, len(recent))
		for _, m := range recent {
			ids = append(ids, m.ID)
		}
		if len(ids) > 0 {
			if err := s.messages.MarkRead(ctx, ids, reader, now); err != nil {
				return models.Conversation{}, fmt.Errorf("stamp read receipts: %w", err)
			}
		}
	}

	return s.conversations.MarkRead(ctx, conv, reader == models.ParticipantSeller)
}

// ClampPage normalizes paging parameters: page >= 0, size in (0, MaxPageSize]
// with DefaultPageSize for non-positive sizes.
func ClampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Snippet builds the conversation preview of content. Lengths are counted
// in characters, not bytes.
func Snippet(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= snippetLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:snippetLimit-3]) + "..."
}
