package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace-chat/internal/models"
)

const conversationColumns = `id, user_id, seller_id, user_snapshot, seller_snapshot, last_message_snippet,
        last_message_at, user_unread_count, seller_unread_count, created_at, updated_at`

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM chat_conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// FindByParticipants fetches the conversation of a (user, seller) pair.
func (r *ConversationRepo) FindByParticipants(ctx context.Context, userID, sellerID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM chat_conversations WHERE user_id=$1 AND seller_id=$2`, userID, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// CreateConversation inserts the conversation unless the pair already exists.
func (r *ConversationRepo) CreateConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	var created models.Conversation
	err := r.db.GetContext(ctx, &created, `INSERT INTO chat_conversations
        (id, user_id, seller_id, user_snapshot, seller_snapshot, last_message_snippet, last_message_at,
         user_unread_count, seller_unread_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (user_id, seller_id) DO NOTHING
        RETURNING `+conversationColumns,
		conv.ID, conv.UserID, conv.SellerID, conv.UserSnapshot, conv.SellerSnapshot, conv.LastMessageSnippet,
		conv.LastMessageAt, conv.UserUnreadCount, conv.SellerUnreadCount, conv.CreatedAt, conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationExists
	}
	return created, err
}

// ListForUser returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM chat_conversations
        WHERE user_id=$1 ORDER BY updated_at DESC, id`, userID)
	return convs, err
}

// ListForSeller returns the seller's conversations, most recently updated first.
func (r *ConversationRepo) ListForSeller(ctx context.Context, sellerID int64) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM chat_conversations
        WHERE seller_id=$1 ORDER BY updated_at DESC, id`, sellerID)
	return convs, err
}

// SaveSnapshots persists refreshed snapshots in one transaction.
func (r *ConversationRepo) SaveSnapshots(ctx context.Context, updates []models.SnapshotUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range updates {
		res, err := tx.ExecContext(ctx, `UPDATE chat_conversations
            SET user_snapshot = COALESCE($2::jsonb, user_snapshot),
                seller_snapshot = COALESCE($3::jsonb, seller_snapshot),
                updated_at = $4
            WHERE id=$1`, u.ConversationID, u.UserSnapshot, u.SellerSnapshot, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update snapshots of %s: %w", u.ConversationID, err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrConversationNotFound
		}
	}
	return tx.Commit()
}

// RecordMessage updates the preview and increments the counterpart's unread
// counter in a single statement.
func (r *ConversationRepo) RecordMessage(ctx context.Context, id, snippet string, at time.Time, sender models.ParticipantType) (models.Conversation, error) {
	counter := counterpartUnreadField(sender)
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `UPDATE chat_conversations
        SET last_message_snippet=$2, last_message_at=$3, updated_at=$3, `+counter+` = `+counter+` + 1
        WHERE id=$1
        RETURNING `+conversationColumns, id, snippet, at)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ResetUnread zeroes the reader's unread counter.
func (r *ConversationRepo) ResetUnread(ctx context.Context, id string, reader models.ParticipantType, at time.Time) (models.Conversation, error) {
	counter := unreadFieldFor(reader)
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `UPDATE chat_conversations
        SET `+counter+` = 0, updated_at=$2
        WHERE id=$1
        RETURNING `+conversationColumns, id, at)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

var _ ConversationRepository = (*ConversationRepo)(nil)
