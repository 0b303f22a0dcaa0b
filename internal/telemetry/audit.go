package telemetry

import (
	"context"
	"log"
	"strconv"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes audit_log envelopes for security relevant chat
// actions such as rejected access and conversation creation.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level          string `json:"level"`
	Action         string `json:"action,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}

// AuditRecord is one auditable chat action.
type AuditRecord struct {
	Level          string
	Action         string
	Text           string
	RequestID      string
	UserID         *int64
	ConversationID string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Envelope wraps rec the way it is published.
func (e *AuditEmitter) Envelope(rec AuditRecord) AuditEnvelope {
	var userID *string
	if rec.UserID != nil {
		id := strconv.FormatInt(*rec.UserID, 10)
		userID = &id
	}
	return AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level:          rec.Level,
			Action:         rec.Action,
			ConversationID: rec.ConversationID,
			Text:           rec.Text,
		},
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := e.Envelope(rec)
	log.Printf("audit emit: level=%s action=%s request_id=%s user_id=%v conversation_id=%s text=%q",
		rec.Level, rec.Action, rec.RequestID, envelope.UserID, rec.ConversationID, rec.Text)
	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
