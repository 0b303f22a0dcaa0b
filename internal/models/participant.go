package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ParticipantType is the side of a conversation a user or message belongs to.
type ParticipantType string

const (
	ParticipantUser   ParticipantType = "USER"
	ParticipantSeller ParticipantType = "SELLER"
)

// ParticipantSnapshot is the denormalized display info embedded in a conversation.
type ParticipantSnapshot struct {
	ParticipantID   int64           `json:"participantId" bson:"participant_id"`
	ParticipantType ParticipantType `json:"participantType" bson:"participant_type"`
	DisplayName     string          `json:"displayName" bson:"display_name"`
	AvatarURL       string          `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
}

// Value stores the snapshot as a JSONB document.
func (s ParticipantSnapshot) Value() (driver.Value, error) {
	return jsonValue(s)
}

// Scan reads a JSONB snapshot column.
func (s *ParticipantSnapshot) Scan(src any) error {
	return scanJSON(src, s)
}

// SameSnapshot reports whether two optional snapshots carry the same values.
func SameSnapshot(a, b *ParticipantSnapshot) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func jsonValue(v any) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported json column type")
	}
}
