package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

// ConversationService owns the conversation lifecycle and keeps the
// denormalized fields (snapshots, counters, preview) consistent.
type ConversationService struct {
	repo  repositories.ConversationRepository
	users repositories.UserDirectory
	now   func() time.Time
}

// NewConversationService constructs a ConversationService.
func NewConversationService(repo repositories.ConversationRepository, users repositories.UserDirectory) *ConversationService {
	return &ConversationService{repo: repo, users: users, now: time.Now}
}

func (s *ConversationService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// GetOrCreate returns the single conversation of the (user, seller) pair,
// creating it on first contact. A concurrent creator that wins the unique
// constraint is treated as the owner and its conversation is returned.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, sellerID int64) (models.Conversation, error) {
	if userID <= 0 || sellerID <= 0 {
		return models.Conversation{}, fmt.Errorf("%w: user and seller ids are required", ErrValidation)
	}
	if userID == sellerID {
		return models.Conversation{}, fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	}

	existing, err := s.repo.FindByParticipants(ctx, userID, sellerID)
	if err == nil {
		return s.ensureSnapshots(ctx, existing)
	}
	if !errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, fmt.Errorf("find conversation: %w", err)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.Conversation{}, notFound(err, fmt.Sprintf("user %d", userID))
	}
	seller, err := s.users.GetUser(ctx, sellerID)
	if err != nil {
		return models.Conversation{}, notFound(err, fmt.Sprintf("seller %d", sellerID))
	}

	now := s.timestamp()
	userSnapshot := BuildSnapshot(user)
	sellerSnapshot := BuildSnapshot(seller)
	created, err := s.repo.CreateConversation(ctx, models.Conversation{
		UserID:         userID,
		SellerID:       sellerID,
		UserSnapshot:   &userSnapshot,
		SellerSnapshot: &sellerSnapshot,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, repositories.ErrConversationExists) {
		observability.IncConversationConflict()
		log.Printf("conversation create conflict user_id=%d seller_id=%d, using existing", userID, sellerID)
		winner, err := s.repo.FindByParticipants(ctx, userID, sellerID)
		if err != nil {
			return models.Conversation{}, fmt.Errorf("refetch conversation after conflict: %w", err)
		}
		return s.ensureSnapshots(ctx, winner)
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return created, nil
}

// GetConversation loads a conversation and backfills missing snapshots.
func (s *ConversationService) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return models.Conversation{}, notFound(err, "conversation "+id)
	}
	return s.ensureSnapshots(ctx, conv)
}

// ListForUser returns the buyer-side conversations of userID.
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	convs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return s.summaries(ctx, convs), nil
}

// ListForSeller returns the seller-side conversations of sellerID.
func (s *ConversationService) ListForSeller(ctx context.Context, sellerID int64) ([]models.ConversationSummary, error) {
	convs, err := s.repo.ListForSeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return s.summaries(ctx, convs), nil
}

func (s *ConversationService) summaries(ctx context.Context, convs []models.Conversation) []models.ConversationSummary {
	convs = s.refreshSnapshots(ctx, convs)
	result := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		result = append(result, ToSummary(conv))
	}
	return result
}

// UpdateLastMessage records a sent message on the conversation: preview,
// timestamp and an increment of the receiving side's unread counter.
func (s *ConversationService) UpdateLastMessage(ctx context.Context, conv models.Conversation, snippet string, at time.Time, senderIsSeller bool) (models.Conversation, error) {
	sender := models.ParticipantUser
	if senderIsSeller {
		sender = models.ParticipantSeller
	}
	updated, err := s.repo.RecordMessage(ctx, conv.ID, snippet, at, sender)
	if err != nil {
		return models.Conversation{}, notFound(err, "conversation "+conv.ID)
	}
	return updated, nil
}

// MarkRead zeroes the reader's unread counter.
func (s *ConversationService) MarkRead(ctx context.Context, conv models.Conversation, readerIsSeller bool) (models.Conversation, error) {
	reader := models.ParticipantUser
	if readerIsSeller {
		reader = models.ParticipantSeller
	}
	updated, err := s.repo.ResetUnread(ctx, conv.ID, reader, s.timestamp())
	if err != nil {
		return models.Conversation{}, notFound(err, "conversation "+conv.ID)
	}
	return updated, nil
}

func (s *ConversationService) ensureSnapshots(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	if conv.UserSnapshot != nil && conv.SellerSnapshot != nil {
		return conv, nil
	}
	update := models.SnapshotUpdate{ConversationID: conv.ID, UpdatedAt: s.timestamp()}
	if conv.UserSnapshot == nil {
		user, err := s.users.GetUser(ctx, conv.UserID)
		if err != nil {
			return models.Conversation{}, notFound(err, fmt.Sprintf("user %d", conv.UserID))
		}
		snap := BuildSnapshot(user)
		update.UserSnapshot = &snap
		conv.UserSnapshot = &snap
	}
	if conv.SellerSnapshot == nil {
		seller, err := s.users.GetUser(ctx, conv.SellerID)
		if err != nil {
			return models.Conversation{}, notFound(err, fmt.Sprintf("seller %d", conv.SellerID))
		}
		snap := BuildSnapshot(seller)
		update.SellerSnapshot = &snap
		conv.SellerSnapshot = &snap
	}
	if err := s.repo.SaveSnapshots(ctx, []models.SnapshotUpdate{update}); err != nil {
		return models.Conversation{}, fmt.Errorf("backfill snapshots: %w", err)
	}
	conv.UpdatedAt = update.UpdatedAt
	return conv, nil
}

// refreshSnapshots re-reads every participant of convs in one directory call
// and persists only the conversations whose snapshots changed. Directory or
// store failures leave the cached snapshots in place.
func (s *ConversationService) refreshSnapshots(ctx context.Context, convs []models.Conversation) []models.Conversation {
	if len(convs) == 0 {
		return convs
	}
	seen := make(map[int64]struct{}, len(convs)*2)
	ids := make([]int64, 0, len(convs)*2)
	for _, conv := range convs {
		for _, id := range []int64{conv.UserID, conv.SellerID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users, err := s.users.BulkUsers(ctx, ids)
	if err != nil {
		log.Printf("snapshot refresh skipped: %v", err)
		return convs
	}
	fresh := make(map[int64]models.ParticipantSnapshot, len(users))
	for _, u := range users {
		fresh[u.ID] = BuildSnapshot(u)
	}

	patched, updates := PatchSnapshots(convs, fresh, s.timestamp())
	if len(updates) == 0 {
		return convs
	}
	if err := s.repo.SaveSnapshots(ctx, updates); err != nil {
		log.Printf("snapshot refresh not persisted conversations=%d: %v", len(updates), err)
	}
	return patched
}
