package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"marketplace-chat/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, sender_type, content, attachments, sent_at, delivered_at, read_by`

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	var saved models.Message
	err := r.db.GetContext(ctx, &saved, `INSERT INTO chat_messages (`+messageColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+messageColumns,
		msg.ID, msg.ConversationID, msg.SenderID, msg.SenderType, msg.Content, msg.Attachments,
		msg.SentAt, msg.DeliveredAt, msg.ReadBy)
	return saved, err
}

// ListMessages returns a newest-first window of the conversation's messages.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string, before *time.Time, offset, limit int) ([]models.Message, error) {
	msgs := []models.Message{}
	if before != nil {
		err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM chat_messages
            WHERE conversation_id=$1 AND sent_at < $2
            ORDER BY sent_at DESC, id COLLATE "C" DESC
            LIMIT $3 OFFSET $4`, conversationID, *before, limit, offset)
		return msgs, err
	}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM chat_messages
        WHERE conversation_id=$1
        ORDER BY sent_at DESC, id COLLATE "C" DESC
        LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	return msgs, err
}

// MarkRead stamps the reader's receipt on the given messages.
func (r *MessageRepo) MarkRead(ctx context.Context, messageIDs []string, reader models.ParticipantType, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}
	stamp, err := json.Marshal(at)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE chat_messages
        SET read_by = jsonb_set(read_by, ARRAY[$2::text], $3::jsonb, true)
        WHERE id = ANY($1)`, pq.Array(messageIDs), string(reader), string(stamp))
	return err
}

// MarkConversationRead stamps every message the reader has not read yet.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID string, reader models.ParticipantType, at time.Time) (int, error) {
	stamp, err := json.Marshal(at)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE chat_messages
        SET read_by = jsonb_set(read_by, ARRAY[$2::text], $3::jsonb, true)
        WHERE conversation_id=$1 AND read_by -> $2::text IS NULL`, conversationID, string(reader), string(stamp))
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

var _ MessageRepository = (*MessageRepo)(nil)
