package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/services"
)

// Authenticator resolves the bearer token of a CONNECT frame.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.ChatActor, error)
}

// Sender handles SEND frames.
type Sender interface {
	Send(ctx context.Context, actor models.ChatActor, req services.SendMessageRequest) (models.MessageView, error)
}

// Options tune a ChatWebSocketHandler.
type Options struct {
	HandshakeTimeout time.Duration
	SendRatePerSec   float64
	SendBurst        int
	AllowedOrigins   []string
}

// ChatWebSocketHandler serves the chat websocket endpoint.
type ChatWebSocketHandler struct {
	hub      *Hub
	auth     Authenticator
	chat     Sender
	opts     Options
	upgrader websocket.Upgrader
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, auth Authenticator, chat Sender, opts Options) *ChatWebSocketHandler {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.SendRatePerSec <= 0 {
		opts.SendRatePerSec = 5
	}
	if opts.SendBurst <= 0 {
		opts.SendBurst = 10
	}
	h := &ChatWebSocketHandler{hub: hub, auth: auth, chat: chat, opts: opts}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *ChatWebSocketHandler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Handle upgrades the connection, authenticates the CONNECT frame and runs
// the session until the client leaves.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-chat/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		span.End()
		return
	}

	actor, err := h.handshake(ctx, conn, c.GetHeader("Authorization"))
	if err != nil {
		log.Printf("websocket handshake rejected ip=%s: %v", observability.IPFromRequest(c.Request), err)
		observability.IncWSEvent(wsKind, "handshake_rejected")
		span.SetStatus(codes.Error, err.Error())
		span.End()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, errorFrame("UNAUTHENTICATED", "handshake rejected", ""))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
		_ = conn.Close()
		return
	}
	span.SetAttributes(attribute.Int64("chat.user_id", actor.UserID))
	traceID := span.SpanContext().TraceID().String()
	span.End()

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      actor.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, info)
	connected, _ := encodeFrame(Frame{Type: FrameConnected, Headers: map[string]string{
		"user-name": strconv.FormatInt(actor.UserID, 10),
		"session":   info.ConnID,
	}})
	client.enqueue(connected)
	h.hub.Register(client)
	go client.writePump()

	observability.IncWSActive(wsKind)
	publishWSEvent(ctx, info, "ws_connect", "", 0)

	// The session outlives the upgrade request.
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		defer cancel()
		h.session(sessionCtx, client, actor)
	}()
}

// handshake reads the first frame, which must be CONNECT, within the
// handshake timeout and authenticates it. A CONNECT without an Authorization
// header falls back to the upgrade request's header.
func (h *ChatWebSocketHandler) handshake(ctx context.Context, conn *websocket.Conn, upgradeAuth string) (models.ChatActor, error) {
	_ = conn.SetReadDeadline(time.Now().Add(h.opts.HandshakeTimeout))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		return models.ChatActor{}, err
	}
	if !strings.EqualFold(frame.Type, FrameConnect) {
		return models.ChatActor{}, errors.New("first frame must be CONNECT, got " + frame.Type)
	}

	header := headerValue(frame.Headers, "Authorization")
	if strings.TrimSpace(header) == "" {
		header = upgradeAuth
	}
	token := services.BearerToken(header)
	if token == "" {
		return models.ChatActor{}, errors.New("missing authorization header")
	}
	return h.auth.Authenticate(ctx, token)
}

func (h *ChatWebSocketHandler) session(ctx context.Context, client *Client, actor models.ChatActor) {
	conn := client.conn
	info := client.info
	var closeReason string
	defer func() {
		h.hub.Unregister(client)
		client.close()
		observability.DecWSActive(wsKind)
		publishWSEvent(ctx, info, "ws_disconnect", closeReason, time.Since(info.ConnectedAt).Milliseconds())
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	limiter := rate.NewLimiter(rate.Limit(h.opts.SendRatePerSec), h.opts.SendBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-client.done:
				default:
					publishWSEvent(ctx, info, "ws_error", closeReason, time.Since(info.ConnectedAt).Milliseconds())
				}
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			client.enqueue(errorFrame("VALIDATION", "malformed frame", ""))
			continue
		}

		switch strings.ToUpper(frame.Type) {
		case FrameConnect:
			// Already authenticated; the session principal never changes.
		case FrameSend:
			h.handleSend(ctx, client, actor, frame, limiter)
		case FrameDisconnect:
			if frame.Receipt != "" {
				client.enqueue(receiptFrame(frame.Receipt))
			}
			closeReason = "client disconnect"
			client.flush(writeWait)
			return
		default:
			client.enqueue(errorFrame("VALIDATION", "unsupported frame type "+frame.Type, frame.Receipt))
		}
	}
}

func (h *ChatWebSocketHandler) handleSend(ctx context.Context, client *Client, actor models.ChatActor, frame Frame, limiter *rate.Limiter) {
	if frame.Destination != SendDestination {
		client.enqueue(errorFrame("VALIDATION", "unknown destination "+frame.Destination, frame.Receipt))
		return
	}
	if !limiter.Allow() {
		observability.IncWSEvent(wsKind, "send_throttled")
		client.enqueue(errorFrame("RATE_LIMITED", "too many messages", frame.Receipt))
		return
	}

	var req services.SendMessageRequest
	if err := json.Unmarshal(frame.Body, &req); err != nil {
		client.enqueue(errorFrame("VALIDATION", "malformed send body", frame.Receipt))
		return
	}

	if _, err := h.chat.Send(ctx, actor, req); err != nil {
		log.Printf("websocket send failed user_id=%d conversation_id=%s: %v", actor.UserID, req.ConversationID, err)
		kind := errorKind(err)
		message := err.Error()
		if kind == kindInternal {
			message = "internal error"
		}
		client.enqueue(errorFrame(kind, message, frame.Receipt))
		return
	}
	observability.IncWSEvent(wsKind, "send")
	if frame.Receipt != "" {
		client.enqueue(receiptFrame(frame.Receipt))
	}
}
