package models

import "time"

// Conversation is the single thread between one buyer and one seller.
type Conversation struct {
	ID                 string               `db:"id" json:"id" bson:"_id"`
	UserID             int64                `db:"user_id" json:"userId" bson:"user_id"`
	SellerID           int64                `db:"seller_id" json:"sellerId" bson:"seller_id"`
	UserSnapshot       *ParticipantSnapshot `db:"user_snapshot" json:"user,omitempty" bson:"user_snapshot,omitempty"`
	SellerSnapshot     *ParticipantSnapshot `db:"seller_snapshot" json:"seller,omitempty" bson:"seller_snapshot,omitempty"`
	LastMessageSnippet *string              `db:"last_message_snippet" json:"lastMessageSnippet" bson:"last_message_snippet"`
	LastMessageAt      *time.Time           `db:"last_message_at" json:"lastMessageAt" bson:"last_message_at"`
	UserUnreadCount    int                  `db:"user_unread_count" json:"userUnreadCount" bson:"user_unread_count"`
	SellerUnreadCount  int                  `db:"seller_unread_count" json:"sellerUnreadCount" bson:"seller_unread_count"`
	CreatedAt          time.Time            `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt          time.Time            `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}

// SideOf returns the participant type of userID within the conversation.
func (c Conversation) SideOf(userID int64) (ParticipantType, bool) {
	switch userID {
	case c.SellerID:
		return ParticipantSeller, true
	case c.UserID:
		return ParticipantUser, true
	default:
		return "", false
	}
}

// IsParticipant reports whether userID is one of the two sides.
func (c Conversation) IsParticipant(userID int64) bool {
	_, ok := c.SideOf(userID)
	return ok
}

// ConversationSummary is the public view of a conversation.
type ConversationSummary struct {
	ID                 string               `json:"id"`
	User               *ParticipantSnapshot `json:"user"`
	Seller             *ParticipantSnapshot `json:"seller"`
	LastMessageSnippet *string              `json:"lastMessageSnippet"`
	LastMessageAt      *time.Time           `json:"lastMessageAt"`
	UserUnreadCount    int                  `json:"userUnreadCount"`
	SellerUnreadCount  int                  `json:"sellerUnreadCount"`
}

// SnapshotUpdate carries refreshed snapshots for one conversation. A nil
// snapshot leaves the stored value untouched.
type SnapshotUpdate struct {
	ConversationID string
	UserSnapshot   *ParticipantSnapshot
	SellerSnapshot *ParticipantSnapshot
	UpdatedAt      time.Time
}
