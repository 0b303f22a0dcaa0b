package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/services"
)

const wsKind = "chat"

const kindInternal = "INTERNAL"

func newConnID() string {
	return uuid.NewString()
}

// publishWSEvent records a session lifecycle event as a metric and a broker envelope.
func publishWSEvent(ctx context.Context, info ConnInfo, event, reason string, durationMS int64) {
	observability.IncWSEvent(wsKind, event)
	_ = observability.PublishEvent(ctx, "ws_events.chats", observability.NewWSEnvelope(
		observability.WSEvent{
			Kind:       wsKind,
			Event:      event,
			ConnID:     info.ConnID,
			DurationMS: durationMS,
			Reason:     reason,
		},
		observability.WSIdentity{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	), observability.BuildHeaders(info.RequestID, info.TraceID))
}

// errorKind names a send failure for the ERROR frame.
func errorKind(err error) string {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, services.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, services.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, services.ErrValidation):
		return "VALIDATION"
	default:
		return kindInternal
	}
}
