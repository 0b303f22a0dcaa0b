package services

import (
	"time"

	"marketplace-chat/internal/models"
)

// BuildSnapshot derives the display snapshot of a directory user. Users with
// the seller role are shown as sellers.
func BuildSnapshot(user models.User) models.ParticipantSnapshot {
	participantType := models.ParticipantUser
	if user.HasRole(models.RoleSeller) {
		participantType = models.ParticipantSeller
	}
	return models.ParticipantSnapshot{
		ParticipantID:   user.ID,
		ParticipantType: participantType,
		DisplayName:     user.Username,
		AvatarURL:       user.AvatarURL,
	}
}

// PatchSnapshots compares every conversation's snapshots with the fresh ones
// and returns the patched conversations plus one update per changed
// conversation. Participants missing from fresh keep their stored snapshot.
func PatchSnapshots(convs []models.Conversation, fresh map[int64]models.ParticipantSnapshot, at time.Time) ([]models.Conversation, []models.SnapshotUpdate) {
	patched := make([]models.Conversation, len(convs))
	var updates []models.SnapshotUpdate
	for i, conv := range convs {
		update := models.SnapshotUpdate{ConversationID: conv.ID, UpdatedAt: at}
		if snap, ok := fresh[conv.UserID]; ok && !models.SameSnapshot(conv.UserSnapshot, &snap) {
			s := snap
			conv.UserSnapshot = &s
			update.UserSnapshot = &s
		}
		if snap, ok := fresh[conv.SellerID]; ok && !models.SameSnapshot(conv.SellerSnapshot, &snap) {
			s := snap
			conv.SellerSnapshot = &s
			update.SellerSnapshot = &s
		}
		if update.UserSnapshot != nil || update.SellerSnapshot != nil {
			conv.UpdatedAt = at
			updates = append(updates, update)
		}
		patched[i] = conv
	}
	return patched, updates
}

// ToSummary projects a conversation to its public view.
func ToSummary(conv models.Conversation) models.ConversationSummary {
	return models.ConversationSummary{
		ID:                 conv.ID,
		User:               conv.UserSnapshot,
		Seller:             conv.SellerSnapshot,
		LastMessageSnippet: conv.LastMessageSnippet,
		LastMessageAt:      conv.LastMessageAt,
		UserUnreadCount:    conv.UserUnreadCount,
		SellerUnreadCount:  conv.SellerUnreadCount,
	}
}
