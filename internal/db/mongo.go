package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	ConversationsCollection = "chat_conversations"
	MessagesCollection      = "chat_messages"
)

// Mongo wraps a mongo.Client bound to the chat database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects and pings the server.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Conversations returns the conversations collection.
func (m *Mongo) Conversations() *mongo.Collection {
	return m.db.Collection(ConversationsCollection)
}

// Messages returns the messages collection.
func (m *Mongo) Messages() *mongo.Collection {
	return m.db.Collection(MessagesCollection)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// CreateIndexes creates the pair uniqueness constraint and the access paths
// used by listing and history queries.
func (m *Mongo) CreateIndexes(ctx context.Context) error {
	conversationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "seller_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_seller"),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "updated_at", Value: -1}}},
	}
	if _, err := m.Conversations().Indexes().CreateMany(ctx, conversationIndexes); err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}},
	}
	if _, err := m.Messages().Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}
