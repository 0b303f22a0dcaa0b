package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ConnectPostgres opens the database and, when migrate is set, applies the
// chat schema. The platform's users/roles tables are owned elsewhere.
func ConnectPostgres(ctx context.Context, dsn string, migrate bool) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if migrate {
		if err := runMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_conversations (
            id TEXT PRIMARY KEY,
            user_id BIGINT NOT NULL,
            seller_id BIGINT NOT NULL,
            user_snapshot JSONB,
            seller_snapshot JSONB,
            last_message_snippet TEXT,
            last_message_at TIMESTAMPTZ,
            user_unread_count INT NOT NULL DEFAULT 0 CHECK (user_unread_count >= 0),
            seller_unread_count INT NOT NULL DEFAULT 0 CHECK (seller_unread_count >= 0),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(user_id, seller_id)
        );`,
		`CREATE INDEX IF NOT EXISTS chat_conversations_user_updated_idx ON chat_conversations (user_id, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS chat_conversations_seller_updated_idx ON chat_conversations (seller_id, updated_at DESC);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES chat_conversations(id),
            sender_id BIGINT NOT NULL,
            sender_type TEXT NOT NULL,
            content TEXT NOT NULL,
            attachments JSONB NOT NULL DEFAULT '[]',
            sent_at TIMESTAMPTZ NOT NULL,
            delivered_at TIMESTAMPTZ NOT NULL,
            read_by JSONB NOT NULL DEFAULT '{}'
        );`,
		`CREATE INDEX IF NOT EXISTS chat_messages_conversation_sent_id_idx ON chat_messages (conversation_id, sent_at DESC, id COLLATE "C" DESC);`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
