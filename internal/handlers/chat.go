package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
)

// ChatService is the facade the REST surface drives.
type ChatService interface {
	StartConversation(ctx context.Context, actor models.ChatActor, req services.StartConversationRequest) (models.ConversationSummary, error)
	ListConversations(ctx context.Context, actor models.ChatActor) ([]models.ConversationSummary, error)
	History(ctx context.Context, actor models.ChatActor, conversationID string, page, size int, before *time.Time) ([]models.MessageView, error)
	MarkRead(ctx context.Context, actor models.ChatActor, conversationID string) (models.ConversationSummary, error)
	Send(ctx context.Context, actor models.ChatActor, req services.SendMessageRequest) (models.MessageView, error)
}

// ChatHandler manages buyer/seller chat endpoints.
type ChatHandler struct {
	chat  ChatService
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. audit may be nil.
func NewChatHandler(chat ChatService, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chat: chat, audit: audit}
}

// RegisterRoutes mounts the chat endpoints on group.
func (h *ChatHandler) RegisterRoutes(group gin.IRoutes) {
	group.POST("/conversations", h.StartConversation)
	group.GET("/conversations", h.ListConversations)
	group.GET("/conversations/:id/messages", h.GetMessages)
	group.PATCH("/conversations/:id/read", h.MarkRead)
	group.POST("/messages", h.SendMessage)
}

// RegisterValidators adds the custom binding tags used by request bodies.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		log.Printf("register notblank validator: %v", err)
	}
}

// StartConversation gets or creates the conversation with a seller or a user.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.chat.StartConversation(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, actor, "start_conversation", "", err)
		return
	}

	h.emit(c, actor, "INFO", "start_conversation", summary.ID, "conversation opened")
	c.JSON(http.StatusOK, summary)
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	list, err := h.chat.ListConversations(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, actor, "list_conversations", "", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetMessages returns a newest-first page of a conversation's history.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	page, err := queryInt(c, "page", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	size, err := queryInt(c, "size", services.DefaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before"})
			return
		}
		at := time.UnixMilli(millis).UTC()
		before = &at
	}

	msgs, err := h.chat.History(c.Request.Context(), actor, conversationID, page, size, before)
	if err != nil {
		h.fail(c, actor, "get_messages", conversationID, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// MarkRead marks the conversation read on the caller's side.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	summary, err := h.chat.MarkRead(c.Request.Context(), actor, conversationID)
	if err != nil {
		h.fail(c, actor, "mark_read", conversationID, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SendMessage stores a message for clients without a websocket session and
// fans it out like a real-time send.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.chat.Send(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, actor, "send_message", req.ConversationID, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) actor(c *gin.Context) (models.ChatActor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return models.ChatActor{}, false
	}
	return actor, true
}

// fail maps a service failure to its status. Forbidden and validation
// failures are audited.
func (h *ChatHandler) fail(c *gin.Context, actor models.ChatActor, action, conversationID string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusForbidden:
		h.emit(c, actor, "WARN", action, conversationID, err.Error())
	case http.StatusBadRequest:
		h.emit(c, actor, "INFO", action, conversationID, err.Error())
	case http.StatusInternalServerError:
		log.Printf("chat request failed action=%s user_id=%d conversation_id=%s: %v", action, actor.UserID, conversationID, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *ChatHandler) emit(c *gin.Context, actor models.ChatActor, level, action, conversationID, text string) {
	userID := actor.UserID
	h.audit.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:          level,
		Action:         action,
		Text:           text,
		RequestID:      requestIDFromContext(c),
		UserID:         &userID,
		ConversationID: conversationID,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
