package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	routingKey string
	events     []any
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, event any) error {
	p.routingKey = routingKey
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	emitter := NewAuditEmitter(pub, "audit.chat", "marketplace-chat", "test")
	emitter.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	userID := int64(12)

	emitter.Emit(context.Background(), AuditRecord{
		Level:          "WARN",
		Action:         "history_forbidden",
		Text:           "not a participant",
		RequestID:      "req-9",
		UserID:         &userID,
		ConversationID: "conv-1",
	})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "audit.chat", pub.routingKey)
	env := pub.events[0].(AuditEnvelope)
	assert.Equal(t, "audit_log", env.EventType)
	assert.Equal(t, "2024-03-01T10:00:00Z", env.OccurredAt)
	require.NotNil(t, env.UserID)
	assert.Equal(t, "12", *env.UserID)
	assert.Equal(t, "conv-1", env.Payload.ConversationID)
	assert.Equal(t, "history_forbidden", env.Payload.Action)
}

func TestAuditEmitterNilSafe(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), AuditRecord{Level: "INFO"})

	NewAuditEmitter(nil, "audit.chat", "svc", "env").Emit(context.Background(), AuditRecord{Level: "INFO"})
}

func TestInitTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "", "marketplace-chat", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
