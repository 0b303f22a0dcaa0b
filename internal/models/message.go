package models

import (
	"database/sql/driver"
	"time"
)

// Attachment describes a file attached to a message.
type Attachment struct {
	AttachmentID string `json:"attachmentId" bson:"attachment_id"`
	FileName     string `json:"fileName" bson:"file_name"`
	ContentType  string `json:"contentType" bson:"content_type"`
	FileSize     int64  `json:"fileSize" bson:"file_size"`
	URL          string `json:"url" bson:"url"`
}

// Attachments is stored as a JSONB array.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonValue([]Attachment(a))
}

func (a *Attachments) Scan(src any) error {
	return scanJSON(src, (*[]Attachment)(a))
}

// ReadReceipts maps a participant side to the instant it read the message.
type ReadReceipts map[ParticipantType]time.Time

func (r ReadReceipts) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	return jsonValue(map[ParticipantType]time.Time(r))
}

func (r *ReadReceipts) Scan(src any) error {
	return scanJSON(src, (*map[ParticipantType]time.Time)(r))
}

// Message is a single chat utterance.
type Message struct {
	ID             string          `db:"id" json:"id" bson:"_id"`
	ConversationID string          `db:"conversation_id" json:"conversationId" bson:"conversation_id"`
	SenderID       int64           `db:"sender_id" json:"senderId" bson:"sender_id"`
	SenderType     ParticipantType `db:"sender_type" json:"senderType" bson:"sender_type"`
	Content        string          `db:"content" json:"content" bson:"content"`
	Attachments    Attachments     `db:"attachments" json:"attachments" bson:"attachments"`
	SentAt         time.Time       `db:"sent_at" json:"sentAt" bson:"sent_at"`
	DeliveredAt    time.Time       `db:"delivered_at" json:"deliveredAt" bson:"delivered_at"`
	ReadBy         ReadReceipts    `db:"read_by" json:"readBy" bson:"read_by"`
}

// MessageView is the message shape delivered to clients.
type MessageView struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       int64           `json:"senderId"`
	SenderType     ParticipantType `json:"senderType"`
	Content        string          `json:"content"`
	Attachments    []Attachment    `json:"attachments"`
	SentAt         time.Time       `json:"sentAt"`
	DeliveredAt    time.Time       `json:"deliveredAt"`
	ReadBy         ReadReceipts    `json:"readBy"`
}

// View projects a stored message to its client view.
func (m Message) View() MessageView {
	attachments := []Attachment(m.Attachments)
	if attachments == nil {
		attachments = []Attachment{}
	}
	readBy := m.ReadBy
	if readBy == nil {
		readBy = ReadReceipts{}
	}
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderType:     m.SenderType,
		Content:        m.Content,
		Attachments:    attachments,
		SentAt:         m.SentAt,
		DeliveredAt:    m.DeliveredAt,
		ReadBy:         readBy,
	}
}
