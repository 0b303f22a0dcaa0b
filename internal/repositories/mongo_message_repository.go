package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"marketplace-chat/internal/models"
)

// MongoMessageRepo stores messages as documents.
type MongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepo constructs a MongoMessageRepo.
func NewMongoMessageRepo(coll *mongo.Collection) *MongoMessageRepo {
	return &MongoMessageRepo{coll: coll}
}

func (r *MongoMessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	// read_by must be a document so dotted $set paths can be applied later
	if msg.ReadBy == nil {
		msg.ReadBy = models.ReadReceipts{}
	}
	if msg.Attachments == nil {
		msg.Attachments = models.Attachments{}
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (r *MongoMessageRepo) ListMessages(ctx context.Context, conversationID string, before *time.Time, offset, limit int) ([]models.Message, error) {
	filter := bson.D{{Key: "conversation_id", Value: conversationID}}
	if before != nil {
		filter = append(filter, bson.E{Key: "sent_at", Value: bson.D{{Key: "$lt", Value: *before}}})
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MongoMessageRepo) MarkRead(ctx context.Context, messageIDs []string, reader models.ParticipantType, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: messageIDs}}}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: readField(reader), Value: at}}}}
	_, err := r.coll.UpdateMany(ctx, filter, update)
	return err
}

func (r *MongoMessageRepo) MarkConversationRead(ctx context.Context, conversationID string, reader models.ParticipantType, at time.Time) (int, error) {
	filter := bson.D{
		{Key: "conversation_id", Value: conversationID},
		{Key: readField(reader), Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: readField(reader), Value: at}}}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

var _ MessageRepository = (*MongoMessageRepo)(nil)
