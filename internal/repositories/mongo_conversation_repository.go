package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"marketplace-chat/internal/models"
)

// MongoConversationRepo stores conversations as documents.
type MongoConversationRepo struct {
	coll *mongo.Collection
}

// NewMongoConversationRepo constructs a MongoConversationRepo.
func NewMongoConversationRepo(coll *mongo.Collection) *MongoConversationRepo {
	return &MongoConversationRepo{coll: coll}
}

func (r *MongoConversationRepo) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoConversationRepo) FindByParticipants(ctx context.Context, userID, sellerID int64) (models.Conversation, error) {
	return r.findOne(ctx, bson.D{{Key: "user_id", Value: userID}, {Key: "seller_id", Value: sellerID}})
}

func (r *MongoConversationRepo) findOne(ctx context.Context, filter bson.D) (models.Conversation, error) {
	var conv models.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// CreateConversation relies on the unique (user_id, seller_id) index to
// reject a second conversation for the same pair.
func (r *MongoConversationRepo) CreateConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	if conv.ID == "" {
		conv.ID = bson.NewObjectID().Hex()
	}
	if _, err := r.coll.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Conversation{}, ErrConversationExists
		}
		return models.Conversation{}, err
	}
	return conv, nil
}

func (r *MongoConversationRepo) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	return r.list(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (r *MongoConversationRepo) ListForSeller(ctx context.Context, sellerID int64) ([]models.Conversation, error) {
	return r.list(ctx, bson.D{{Key: "seller_id", Value: sellerID}})
}

func (r *MongoConversationRepo) list(ctx context.Context, filter bson.D) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	convs := []models.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// SaveSnapshots writes all refreshed snapshots in one bulk request.
func (r *MongoConversationRepo) SaveSnapshots(ctx context.Context, updates []models.SnapshotUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		set := bson.D{{Key: "updated_at", Value: u.UpdatedAt}}
		if u.UserSnapshot != nil {
			set = append(set, bson.E{Key: "user_snapshot", Value: u.UserSnapshot})
		}
		if u.SellerSnapshot != nil {
			set = append(set, bson.E{Key: "seller_snapshot", Value: u.SellerSnapshot})
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: u.ConversationID}}).
			SetUpdate(bson.D{{Key: "$set", Value: set}}))
	}
	res, err := r.coll.BulkWrite(ctx, writes)
	if err != nil {
		return fmt.Errorf("bulk update snapshots: %w", err)
	}
	if res.MatchedCount < int64(len(updates)) {
		return ErrConversationNotFound
	}
	return nil
}

// RecordMessage sets the preview and increments the counterpart's counter
// with $inc so concurrent senders never lose an increment.
func (r *MongoConversationRepo) RecordMessage(ctx context.Context, id, snippet string, at time.Time, sender models.ParticipantType) (models.Conversation, error) {
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "last_message_snippet", Value: snippet},
			{Key: "last_message_at", Value: at},
			{Key: "updated_at", Value: at},
		}},
		{Key: "$inc", Value: bson.D{{Key: counterpartUnreadField(sender), Value: 1}}},
	}
	return r.findOneAndUpdate(ctx, id, update)
}

func (r *MongoConversationRepo) ResetUnread(ctx context.Context, id string, reader models.ParticipantType, at time.Time) (models.Conversation, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: unreadFieldFor(reader), Value: 0},
		{Key: "updated_at", Value: at},
	}}}
	return r.findOneAndUpdate(ctx, id, update)
}

func (r *MongoConversationRepo) findOneAndUpdate(ctx context.Context, id string, update bson.D) (models.Conversation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var conv models.Conversation
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

var _ ConversationRepository = (*MongoConversationRepo)(nil)
