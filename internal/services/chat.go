package services

import (
	"context"
	"fmt"
	"time"

	"marketplace-chat/internal/models"
)

// StartConversationRequest names the counterpart of a new conversation.
// Exactly one field must be set.
type StartConversationRequest struct {
	SellerID *int64 `json:"sellerId"`
	UserID   *int64 `json:"userId"`
}

// SendMessageRequest is the body of a send, over REST or the websocket.
type SendMessageRequest struct {
	ConversationID string              `json:"conversationId" binding:"required"`
	Content        string              `json:"content" binding:"required,notblank"`
	Attachments    []models.Attachment `json:"attachments"`
}

// Chat is the entry point shared by the REST handlers and the websocket
// session. Every operation takes an already authenticated actor.
type Chat struct {
	conversations *ConversationService
	messages      *MessageService
	router        *MessageRouter
}

// NewChat constructs the facade.
func NewChat(conversations *ConversationService, messages *MessageService, router *MessageRouter) *Chat {
	return &Chat{conversations: conversations, messages: messages, router: router}
}

// StartConversation gets or creates the conversation between the actor and
// the requested counterpart. Seller-only actors address a user; everyone
// else addresses a seller. Dual-role actors may use either field.
func (c *Chat) StartConversation(ctx context.Context, actor models.ChatActor, req StartConversationRequest) (models.ConversationSummary, error) {
	if (req.SellerID == nil) == (req.UserID == nil) {
		return models.ConversationSummary{}, fmt.Errorf("%w: exactly one of sellerId or userId is required", ErrValidation)
	}

	var userID, sellerID int64
	switch {
	case req.SellerID != nil:
		if actor.IsSellerOnly() {
			return models.ConversationSummary{}, fmt.Errorf("%w: sellers start conversations with a userId", ErrForbidden)
		}
		userID, sellerID = actor.UserID, *req.SellerID
	default:
		if !actor.CanSell() {
			return models.ConversationSummary{}, fmt.Errorf("%w: only sellers may start a conversation with a user", ErrForbidden)
		}
		userID, sellerID = *req.UserID, actor.UserID
	}

	conv, err := c.conversations.GetOrCreate(ctx, userID, sellerID)
	if err != nil {
		return models.ConversationSummary{}, err
	}
	return ToSummary(conv), nil
}

// ListConversations returns the seller-side list for seller-only actors and
// the user-side list for everyone else.
func (c *Chat) ListConversations(ctx context.Context, actor models.ChatActor) ([]models.ConversationSummary, error) {
	if actor.IsSellerOnly() {
		return c.conversations.ListForSeller(ctx, actor.UserID)
	}
	return c.conversations.ListForUser(ctx, actor.UserID)
}

// History returns a page of messages of a conversation the actor belongs to.
func (c *Chat) History(ctx context.Context, actor models.ChatActor, conversationID string, page, size int, before *time.Time) ([]models.MessageView, error) {
	conv, err := c.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(actor.UserID) {
		return nil, fmt.Errorf("%w: user %d is not a participant of conversation %s", ErrForbidden, actor.UserID, conv.ID)
	}
	return c.messages.GetMessages(ctx, conv.ID, page, size, before)
}

// MarkRead marks the conversation read on the actor's side.
func (c *Chat) MarkRead(ctx context.Context, actor models.ChatActor, conversationID string) (models.ConversationSummary, error) {
	conv, err := c.messages.MarkAsRead(ctx, actor.UserID, conversationID)
	if err != nil {
		return models.ConversationSummary{}, err
	}
	return ToSummary(conv), nil
}

// Send stores a message and fans it out to both participants. Fan-out runs
// only after the message and the conversation update are persisted.
func (c *Chat) Send(ctx context.Context, actor models.ChatActor, req SendMessageRequest) (models.MessageView, error) {
	view, conv, err := c.messages.SendMessage(ctx, actor.UserID, req.ConversationID, req.Content, req.Attachments)
	if err != nil {
		return models.MessageView{}, err
	}
	c.router.Deliver(ctx, view, conv)
	return view, nil
}
