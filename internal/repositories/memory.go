package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace-chat/internal/models"
)

type pairKey struct {
	userID   int64
	sellerID int64
}

// MemoryStore keeps conversations and messages in process memory. It
// implements both ConversationRepository and MessageRepository.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	byPair        map[pairKey]string
	messages      map[string]models.Message
	byConv        map[string][]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]models.Conversation),
		byPair:        make(map[pairKey]string),
		messages:      make(map[string]models.Message),
		byConv:        make(map[string][]string),
	}
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) FindByParticipants(ctx context.Context, userID, sellerID int64) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{userID, sellerID}]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	return cloneConversation(s.conversations[id]), nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{conv.UserID, conv.SellerID}
	if _, exists := s.byPair[key]; exists {
		return models.Conversation{}, ErrConversationExists
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	conv = cloneConversation(conv)
	s.conversations[conv.ID] = conv
	s.byPair[key] = conv.ID
	return cloneConversation(conv), nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID int64) ([]models.Conversation, error) {
	return s.list(func(c models.Conversation) bool { return c.UserID == userID }), nil
}

func (s *MemoryStore) ListForSeller(ctx context.Context, sellerID int64) ([]models.Conversation, error) {
	return s.list(func(c models.Conversation) bool { return c.SellerID == sellerID }), nil
}

func (s *MemoryStore) list(match func(models.Conversation) bool) []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Conversation, 0)
	for _, c := range s.conversations {
		if match(c) {
			result = append(result, cloneConversation(c))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

func (s *MemoryStore) SaveSnapshots(ctx context.Context, updates []models.SnapshotUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		if _, ok := s.conversations[u.ConversationID]; !ok {
			return ErrConversationNotFound
		}
	}
	for _, u := range updates {
		conv := s.conversations[u.ConversationID]
		if u.UserSnapshot != nil {
			snap := *u.UserSnapshot
			conv.UserSnapshot = &snap
		}
		if u.SellerSnapshot != nil {
			snap := *u.SellerSnapshot
			conv.SellerSnapshot = &snap
		}
		conv.UpdatedAt = u.UpdatedAt
		s.conversations[u.ConversationID] = conv
	}
	return nil
}

func (s *MemoryStore) RecordMessage(ctx context.Context, id, snippet string, at time.Time, sender models.ParticipantType) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	conv.LastMessageSnippet = &snippet
	ts := at
	conv.LastMessageAt = &ts
	conv.UpdatedAt = at
	if sender == models.ParticipantSeller {
		conv.UserUnreadCount++
	} else {
		conv.SellerUnreadCount++
	}
	s.conversations[id] = conv
	return cloneConversation(conv), nil
}

func (s *MemoryStore) ResetUnread(ctx context.Context, id string, reader models.ParticipantType, at time.Time) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	if reader == models.ParticipantSeller {
		conv.SellerUnreadCount = 0
	} else {
		conv.UserUnreadCount = 0
	}
	conv.UpdatedAt = at
	s.conversations[id] = conv
	return cloneConversation(conv), nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = newMessageID()
	}
	msg = cloneMessage(msg)
	s.messages[msg.ID] = msg
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], msg.ID)
	return cloneMessage(msg), nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string, before *time.Time, offset, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]models.Message, 0)
	for _, id := range s.byConv[conversationID] {
		msg := s.messages[id]
		if before != nil && !msg.SentAt.Before(*before) {
			continue
		}
		matched = append(matched, msg)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SentAt.Equal(matched[j].SentAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].SentAt.After(matched[j].SentAt)
	})
	if offset >= len(matched) {
		return []models.Message{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]models.Message, 0, end-offset)
	for _, msg := range matched[offset:end] {
		page = append(page, cloneMessage(msg))
	}
	return page, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, messageIDs []string, reader models.ParticipantType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range messageIDs {
		msg, ok := s.messages[id]
		if !ok {
			continue
		}
		msg = cloneMessage(msg)
		msg.ReadBy[reader] = at
		s.messages[id] = msg
	}
	return nil
}

func (s *MemoryStore) MarkConversationRead(ctx context.Context, conversationID string, reader models.ParticipantType, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamped := 0
	for _, id := range s.byConv[conversationID] {
		msg := s.messages[id]
		if _, done := msg.ReadBy[reader]; done {
			continue
		}
		msg = cloneMessage(msg)
		msg.ReadBy[reader] = at
		s.messages[id] = msg
		stamped++
	}
	return stamped, nil
}

func cloneConversation(c models.Conversation) models.Conversation {
	if c.UserSnapshot != nil {
		snap := *c.UserSnapshot
		c.UserSnapshot = &snap
	}
	if c.SellerSnapshot != nil {
		snap := *c.SellerSnapshot
		c.SellerSnapshot = &snap
	}
	if c.LastMessageSnippet != nil {
		snippet := *c.LastMessageSnippet
		c.LastMessageSnippet = &snippet
	}
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		c.LastMessageAt = &at
	}
	return c
}

func cloneMessage(m models.Message) models.Message {
	m.Attachments = append(models.Attachments{}, m.Attachments...)
	readBy := make(models.ReadReceipts, len(m.ReadBy))
	for k, v := range m.ReadBy {
		readBy[k] = v
	}
	m.ReadBy = readBy
	return m
}

var (
	_ ConversationRepository = (*MemoryStore)(nil)
	_ MessageRepository      = (*MemoryStore)(nil)
)
