package repositories

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/models"
)

// exerciseStore runs the behaviour every conversation/message backend must share.
func exerciseStore(t *testing.T, convs ConversationRepository, msgs MessageRepository) {
	t.Helper()
	ctx := context.Background()
	userID := rand.Int63n(1_000_000_000) + 1
	sellerID := userID + 1
	base := time.Now().UTC().Truncate(time.Millisecond)

	userSnap := models.ParticipantSnapshot{ParticipantID: userID, ParticipantType: models.ParticipantUser, DisplayName: "alice"}
	conv, err := convs.CreateConversation(ctx, models.Conversation{
		UserID:       userID,
		SellerID:     sellerID,
		UserSnapshot: &userSnap,
		CreatedAt:    base,
		UpdatedAt:    base,
	})
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)

	_, err = convs.CreateConversation(ctx, models.Conversation{UserID: userID, SellerID: sellerID, CreatedAt: base, UpdatedAt: base})
	require.ErrorIs(t, err, ErrConversationExists)

	found, err := convs.FindByParticipants(ctx, userID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)
	assert.Nil(t, found.SellerSnapshot)
	require.NotNil(t, found.UserSnapshot)
	assert.Equal(t, "alice", found.UserSnapshot.DisplayName)

	_, err = convs.GetConversation(ctx, "000000000000000000000000")
	require.ErrorIs(t, err, ErrConversationNotFound)

	sellerSnap := models.ParticipantSnapshot{ParticipantID: sellerID, ParticipantType: models.ParticipantSeller, DisplayName: "shop"}
	require.NoError(t, convs.SaveSnapshots(ctx, []models.SnapshotUpdate{{ConversationID: conv.ID, SellerSnapshot: &sellerSnap, UpdatedAt: base.Add(time.Second)}}))
	snapped, err := convs.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, snapped.SellerSnapshot)
	assert.Equal(t, "shop", snapped.SellerSnapshot.DisplayName)
	assert.Equal(t, "alice", snapped.UserSnapshot.DisplayName)

	sent := make([]models.Message, 0, 3)
	for i, text := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i+2) * time.Second)
		msg, err := msgs.CreateMessage(ctx, models.Message{
			ConversationID: conv.ID,
			SenderID:       userID,
			SenderType:     models.ParticipantUser,
			Content:        text,
			SentAt:         at,
			DeliveredAt:    at,
			ReadBy:         models.ReadReceipts{},
		})
		require.NoError(t, err)
		sent = append(sent, msg)

		updated, err := convs.RecordMessage(ctx, conv.ID, text, at, models.ParticipantUser)
		require.NoError(t, err)
		assert.Equal(t, i+1, updated.SellerUnreadCount)
		assert.Equal(t, 0, updated.UserUnreadCount)
		require.NotNil(t, updated.LastMessageSnippet)
		assert.Equal(t, text, *updated.LastMessageSnippet)
		assert.True(t, updated.UpdatedAt.Equal(at))
	}

	page, err := msgs.ListMessages(ctx, conv.ID, nil, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Content)
	assert.Equal(t, "two", page[1].Content)
	assert.NotNil(t, page[0].Attachments)

	before := sent[2].SentAt
	older, err := msgs.ListMessages(ctx, conv.ID, &before, 1, 5)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "one", older[0].Content)

	readAt := base.Add(time.Minute)
	require.NoError(t, msgs.MarkRead(ctx, []string{sent[2].ID}, models.ParticipantSeller, readAt))
	stamped, err := msgs.MarkConversationRead(ctx, conv.ID, models.ParticipantSeller, readAt)
	require.NoError(t, err)
	assert.Equal(t, 2, stamped)

	all, err := msgs.ListMessages(ctx, conv.ID, nil, 0, 10)
	require.NoError(t, err)
	for _, m := range all {
		assert.True(t, m.ReadBy[models.ParticipantSeller].Equal(readAt), m.Content)
		_, userRead := m.ReadBy[models.ParticipantUser]
		assert.False(t, userRead)
	}

	reset, err := convs.ResetUnread(ctx, conv.ID, models.ParticipantSeller, readAt)
	require.NoError(t, err)
	assert.Equal(t, 0, reset.SellerUnreadCount)
	assert.True(t, reset.UpdatedAt.Equal(readAt))

	other, err := convs.CreateConversation(ctx, models.Conversation{UserID: userID, SellerID: sellerID + 1, CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)
	list, err := convs.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, conv.ID, list[0].ID)
	assert.Equal(t, other.ID, list[1].ID)

	sellerList, err := convs.ListForSeller(ctx, sellerID)
	require.NoError(t, err)
	require.Len(t, sellerList, 1)

	_, err = convs.RecordMessage(ctx, "000000000000000000000000", "x", readAt, models.ParticipantUser)
	require.ErrorIs(t, err, ErrConversationNotFound)

	// Messages sharing one sent_at come back in insertion order, newest first.
	burst, err := convs.CreateConversation(ctx, models.Conversation{UserID: userID, SellerID: sellerID + 2, CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)
	for _, text := range []string{"b1", "b2", "b3", "b4", "b5"} {
		_, err := msgs.CreateMessage(ctx, models.Message{
			ConversationID: burst.ID,
			SenderID:       userID,
			SenderType:     models.ParticipantUser,
			Content:        text,
			SentAt:         base,
			DeliveredAt:    base,
			ReadBy:         models.ReadReceipts{},
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"b5", "b4"}, contents(t, msgs, burst.ID, 0, 2))
	assert.Equal(t, []string{"b3", "b2"}, contents(t, msgs, burst.ID, 2, 2))
	assert.Equal(t, []string{"b1"}, contents(t, msgs, burst.ID, 4, 2))
}

func contents(t *testing.T, msgs MessageRepository, conversationID string, offset, limit int) []string {
	t.Helper()
	page, err := msgs.ListMessages(context.Background(), conversationID, nil, offset, limit)
	require.NoError(t, err)
	out := make([]string, 0, len(page))
	for _, m := range page {
		out = append(out, m.Content)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store, store)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	snap := models.ParticipantSnapshot{ParticipantID: 1, DisplayName: "alice"}
	conv, err := store.CreateConversation(ctx, models.Conversation{UserID: 1, SellerID: 2, UserSnapshot: &snap})
	require.NoError(t, err)

	conv.UserSnapshot.DisplayName = "mutated"
	stored, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.UserSnapshot.DisplayName)
}
