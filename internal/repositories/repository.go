package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"marketplace-chat/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrUserNotFound         = errors.New("user not found")
)

// ConversationRepository abstracts conversation persistence. Counter updates
// must be atomic at the store level.
type ConversationRepository interface {
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	FindByParticipants(ctx context.Context, userID, sellerID int64) (models.Conversation, error)
	// CreateConversation inserts conv and returns ErrConversationExists when
	// the (user, seller) pair is already taken.
	CreateConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error)
	ListForSeller(ctx context.Context, sellerID int64) ([]models.Conversation, error)
	SaveSnapshots(ctx context.Context, updates []models.SnapshotUpdate) error
	// RecordMessage sets the preview fields and increments the unread counter
	// of the side opposite to sender, returning the post-update conversation.
	RecordMessage(ctx context.Context, id, snippet string, at time.Time, sender models.ParticipantType) (models.Conversation, error)
	// ResetUnread zeroes the reader's counter and returns the post-update conversation.
	ResetUnread(ctx context.Context, id string, reader models.ParticipantType, at time.Time) (models.Conversation, error)
}

// MessageRepository abstracts message persistence.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	// ListMessages returns messages newest first. A non-nil before is an
	// exclusive upper bound on sentAt.
	ListMessages(ctx context.Context, conversationID string, before *time.Time, offset, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, messageIDs []string, reader models.ParticipantType, at time.Time) error
	// MarkConversationRead stamps every message of the conversation that the
	// reader has not read yet and returns the number of stamped messages.
	MarkConversationRead(ctx context.Context, conversationID string, reader models.ParticipantType, at time.Time) (int, error)
}

// UserDirectory resolves platform users. The chat never writes to it.
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (models.User, error)
	BulkUsers(ctx context.Context, ids []int64) ([]models.User, error)
}

func readField(side models.ParticipantType) string {
	if side == models.ParticipantSeller {
		return "read_by.SELLER"
	}
	return "read_by.USER"
}

func unreadFieldFor(reader models.ParticipantType) string {
	if reader == models.ParticipantSeller {
		return "seller_unread_count"
	}
	return "user_unread_count"
}

// counterpartUnreadField is the counter bumped when sender posts.
func counterpartUnreadField(sender models.ParticipantType) string {
	if sender == models.ParticipantSeller {
		return "user_unread_count"
	}
	return "seller_unread_count"
}

// newMessageID returns a time-ordered id. Ids from one process sort in
// creation order, so they break ties between messages sharing a sent_at.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
