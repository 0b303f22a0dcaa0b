package services

import (
	"context"
	"log"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
)

// Per-user destinations, relative to the /user prefix a client subscribes with.
const (
	MessagesChannel      = "/queue/chat/messages"
	ConversationsChannel = "/queue/chat/conversations"
)

// Publisher delivers a payload to every live session of one user. Users
// without a session are skipped silently.
type Publisher interface {
	Publish(ctx context.Context, userID int64, channel string, payload any) error
}

// MessageRouter fans a sent message out to both participants.
type MessageRouter struct {
	publisher Publisher
}

// NewMessageRouter constructs a MessageRouter.
func NewMessageRouter(publisher Publisher) *MessageRouter {
	return &MessageRouter{publisher: publisher}
}

// Deliver publishes the message and then the refreshed summary to the user
// and the seller of conv. Individual failures are logged and do not stop
// the remaining notices.
func (r *MessageRouter) Deliver(ctx context.Context, msg models.MessageView, conv models.Conversation) {
	if r == nil || r.publisher == nil {
		return
	}
	summary := ToSummary(conv)
	recipients := []int64{conv.UserID, conv.SellerID}
	for _, userID := range recipients {
		r.publish(ctx, userID, MessagesChannel, msg)
	}
	for _, userID := range recipients {
		r.publish(ctx, userID, ConversationsChannel, summary)
	}
}

func (r *MessageRouter) publish(ctx context.Context, userID int64, channel string, payload any) {
	if err := r.publisher.Publish(ctx, userID, channel, payload); err != nil {
		observability.IncFanout(channel, "error")
		log.Printf("fanout failed user_id=%d channel=%s: %v", userID, channel, err)
		return
	}
	observability.IncFanout(channel, "ok")
}
