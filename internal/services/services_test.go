package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/repositories"
)

const (
	buyerID  int64 = 1
	sellerID int64 = 2
	otherID  int64 = 3
	dualID   int64 = 4
)

type fakeDirectory struct {
	mu    sync.Mutex
	users map[int64]models.User
	err   error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[int64]models.User{
		buyerID:  {ID: buyerID, Username: "alice", Roles: []string{models.RoleUser}},
		sellerID: {ID: sellerID, Username: "shop", AvatarURL: "https://cdn/shop.png", Roles: []string{models.RoleSeller}},
		otherID:  {ID: otherID, Username: "mallory", Roles: []string{models.RoleUser}},
		dualID:   {ID: dualID, Username: "both", Roles: []string{models.RoleUser, models.RoleSeller}},
	}}
}

func (d *fakeDirectory) GetUser(ctx context.Context, id int64) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return models.User{}, d.err
	}
	u, ok := d.users[id]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	return u, nil
}

func (d *fakeDirectory) BulkUsers(ctx context.Context, ids []int64) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *fakeDirectory) rename(id int64, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.users[id]
	u.Username = name
	d.users[id] = u
}

type notice struct {
	userID  int64
	channel string
	payload any
}

type recordingPublisher struct {
	mu      sync.Mutex
	notices []notice
}

func (p *recordingPublisher) Publish(ctx context.Context, userID int64, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice{userID: userID, channel: channel, payload: payload})
	return nil
}

// clock advances by step per reading. A zero step freezes it, which is what
// a burst of sends inside one millisecond looks like.
type clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *clock) Set(now time.Time, step time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now, c.step = now, step
}

type fixture struct {
	store     *repositories.MemoryStore
	directory *fakeDirectory
	publisher *recordingPublisher
	clock     *clock
	convs     *ConversationService
	messages  *MessageService
	chat      *Chat
}

func newFixture(t *testing.T, scope string) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	directory := newFakeDirectory()
	publisher := &recordingPublisher{}
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: time.Second}

	convs := NewConversationService(store, directory)
	convs.now = clk.Now
	messages := NewMessageService(store, convs, scope)
	messages.now = clk.Now

	return &fixture{
		store:     store,
		directory: directory,
		publisher: publisher,
		clock:     clk,
		convs:     convs,
		messages:  messages,
		chat:      NewChat(convs, messages, NewMessageRouter(publisher)),
	}
}

func actorFor(t *testing.T, f *fixture, id int64) models.ChatActor {
	t.Helper()
	user, err := f.directory.GetUser(context.Background(), id)
	require.NoError(t, err)
	return models.NewChatActor(user)
}

func TestGetOrCreateReturnsSameConversation(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()

	first, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)
	second, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	require.NotNil(t, first.UserSnapshot)
	require.NotNil(t, first.SellerSnapshot)
	assert.Equal(t, models.ParticipantUser, first.UserSnapshot.ParticipantType)
	assert.Equal(t, models.ParticipantSeller, first.SellerSnapshot.ParticipantType)
	assert.Equal(t, "https://cdn/shop.png", first.SellerSnapshot.AvatarURL)
	assert.Zero(t, first.UserUnreadCount)
	assert.Nil(t, first.LastMessageSnippet)
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	list, err := f.store.ListForUser(ctx, buyerID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetOrCreateUnknownParticipant(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)

	_, err := f.convs.GetOrCreate(context.Background(), buyerID, 99)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.convs.GetOrCreate(context.Background(), buyerID, buyerID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetOrCreateBackfillsMissingSnapshot(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()

	stored, err := f.store.CreateConversation(ctx, models.Conversation{UserID: buyerID, SellerID: sellerID})
	require.NoError(t, err)
	require.Nil(t, stored.UserSnapshot)

	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, conv.ID)
	require.NotNil(t, conv.UserSnapshot)
	assert.Equal(t, "alice", conv.UserSnapshot.DisplayName)

	persisted, err := f.store.GetConversation(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted.SellerSnapshot)
	assert.Equal(t, "shop", persisted.SellerSnapshot.DisplayName)
}

func TestUnreadAccounting(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, err := f.messages.SendMessage(ctx, buyerID, conv.ID, "ping", nil)
		require.NoError(t, err)
	}

	stored, err := f.store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.SellerUnreadCount)
	assert.Equal(t, 0, stored.UserUnreadCount)

	read, err := f.messages.MarkAsRead(ctx, sellerID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, read.SellerUnreadCount)
	assert.True(t, read.UpdatedAt.After(stored.UpdatedAt))
}

func TestConcurrentSendsKeepEveryIncrement(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	const sends = 25
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = f.messages.SendMessage(ctx, sellerID, conv.ID, "stock update", nil)
		}()
	}
	wg.Wait()

	stored, err := f.store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, sends, stored.UserUnreadCount)
}

func TestGetMessagesPagination(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	sent := make([]models.MessageView, 0, 5)
	for _, text := range []string{"M1", "M2", "M3", "M4", "M5"} {
		view, _, err := f.messages.SendMessage(ctx, buyerID, conv.ID, text, nil)
		require.NoError(t, err)
		sent = append(sent, view)
	}

	page, err := f.messages.GetMessages(ctx, conv.ID, 0, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "M5", page[0].Content)
	assert.Equal(t, "M4", page[1].Content)

	before := sent[3].SentAt
	older, err := f.messages.GetMessages(ctx, conv.ID, 0, 2, &before)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, "M3", older[0].Content)
	assert.Equal(t, "M2", older[1].Content)

	second, err := f.messages.GetMessages(ctx, conv.ID, 2, 2, nil)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "M1", second[0].Content)
}

func TestGetMessagesSameInstant(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 5, 1, 13, 0, 0, 250_400, time.UTC), 0)
	for _, text := range []string{"M1", "M2", "M3", "M4", "M5"} {
		_, _, err := f.messages.SendMessage(ctx, buyerID, conv.ID, text, nil)
		require.NoError(t, err)
	}

	page, err := f.messages.GetMessages(ctx, conv.ID, 0, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"M5", "M4"}, messageContents(page))
	assert.True(t, page[0].SentAt.Equal(page[1].SentAt))

	next, err := f.messages.GetMessages(ctx, conv.ID, 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"M3", "M2"}, messageContents(next))

	last, err := f.messages.GetMessages(ctx, conv.ID, 2, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"M1"}, messageContents(last))
}

func TestGetMessagesBeforeWithSharedInstants(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	earlier := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	f.clock.Set(earlier, 0)
	for _, text := range []string{"M1", "M2"} {
		_, _, err := f.messages.SendMessage(ctx, buyerID, conv.ID, text, nil)
		require.NoError(t, err)
	}
	f.clock.Set(earlier.Add(time.Millisecond), 0)
	var newest models.MessageView
	for _, text := range []string{"M3", "M4", "M5"} {
		newest, _, err = f.messages.SendMessage(ctx, buyerID, conv.ID, text, nil)
		require.NoError(t, err)
	}

	before := newest.SentAt
	older, err := f.messages.GetMessages(ctx, conv.ID, 0, 5, &before)
	require.NoError(t, err)
	assert.Equal(t, []string{"M2", "M1"}, messageContents(older))
}

func messageContents(views []models.MessageView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Content)
	}
	return out
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 20, 0, 20},
		{-3, 0, 0, DefaultPageSize},
		{2, -1, 2, DefaultPageSize},
		{1, 500, 1, MaxPageSize},
		{0, 100, 0, 100},
	}
	for _, tc := range cases {
		page, size := ClampPage(tc.page, tc.size)
		assert.Equal(t, tc.wantPage, page)
		assert.Equal(t, tc.wantSize, size)
	}
}

func TestSnippetTruncation(t *testing.T) {
	exact := strings.Repeat("a", 150)
	assert.Equal(t, exact, Snippet(exact))

	long := strings.Repeat("b", 151)
	got := Snippet(long)
	assert.Equal(t, strings.Repeat("b", 147)+"...", got)
	assert.Len(t, []rune(got), 150)

	wide := strings.Repeat("ж", 200)
	assert.Equal(t, strings.Repeat("ж", 147)+"...", Snippet(wide))

	assert.Equal(t, "hi", Snippet("  hi  "))
}

func TestSendRejectsNonParticipant(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	for _, content := range []string{"hi", "x", strings.Repeat("spam ", 100)} {
		_, _, err := f.messages.SendMessage(ctx, otherID, conv.ID, content, nil)
		require.ErrorIs(t, err, ErrForbidden)
	}

	page, err := f.messages.GetMessages(ctx, conv.ID, 0, 20, nil)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSendValidatesBeforeLoading(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)

	_, _, err := f.messages.SendMessage(context.Background(), buyerID, "missing", "   ", nil)
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = f.messages.SendMessage(context.Background(), buyerID, "missing", "hello", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestToSummaryIsPure(t *testing.T) {
	snippet := "hello"
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	conv := models.Conversation{
		ID:                 "c1",
		UserID:             buyerID,
		SellerID:           sellerID,
		UserSnapshot:       &models.ParticipantSnapshot{ParticipantID: buyerID, ParticipantType: models.ParticipantUser, DisplayName: "alice"},
		LastMessageSnippet: &snippet,
		LastMessageAt:      &at,
		SellerUnreadCount:  2,
	}
	before := conv

	first := ToSummary(conv)
	second := ToSummary(conv)
	assert.Equal(t, first, second)
	assert.Equal(t, before, conv)
}

func TestListRefreshesChangedSnapshotsOnly(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	withSeller, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)
	withDual, err := f.convs.GetOrCreate(ctx, buyerID, dualID)
	require.NoError(t, err)

	f.directory.rename(sellerID, "shop renamed")

	list, err := f.convs.ListForUser(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, summary := range list {
		if summary.ID == withSeller.ID {
			assert.Equal(t, "shop renamed", summary.Seller.DisplayName)
		}
	}

	refreshed, err := f.store.GetConversation(ctx, withSeller.ID)
	require.NoError(t, err)
	assert.Equal(t, "shop renamed", refreshed.SellerSnapshot.DisplayName)
	assert.True(t, refreshed.UpdatedAt.After(withSeller.UpdatedAt))

	untouched, err := f.store.GetConversation(ctx, withDual.ID)
	require.NoError(t, err)
	assert.Equal(t, withDual.UpdatedAt, untouched.UpdatedAt)
}

func TestListServesCachedSnapshotsWhenDirectoryFails(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	_, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	f.directory.err = assert.AnError
	list, err := f.convs.ListForSeller(ctx, sellerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "shop", list[0].Seller.DisplayName)
}

func TestPatchSnapshotsDetectsValueChanges(t *testing.T) {
	same := models.ParticipantSnapshot{ParticipantID: buyerID, ParticipantType: models.ParticipantUser, DisplayName: "alice"}
	conv := models.Conversation{ID: "c1", UserID: buyerID, SellerID: sellerID, UserSnapshot: &same}
	at := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	patched, updates := PatchSnapshots([]models.Conversation{conv}, map[int64]models.ParticipantSnapshot{buyerID: same}, at)
	assert.Empty(t, updates)
	assert.Equal(t, conv, patched[0])

	changed := same
	changed.AvatarURL = "https://cdn/a.png"
	patched, updates = PatchSnapshots([]models.Conversation{conv}, map[int64]models.ParticipantSnapshot{buyerID: changed}, at)
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].SellerSnapshot)
	assert.Equal(t, "https://cdn/a.png", patched[0].UserSnapshot.AvatarURL)
	assert.Equal(t, at, patched[0].UpdatedAt)
}

func TestStartConversationRoleRules(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	buyer := actorFor(t, f, buyerID)
	seller := actorFor(t, f, sellerID)
	dual := actorFor(t, f, dualID)
	s, u := sellerID, buyerID

	_, err := f.chat.StartConversation(ctx, buyer, StartConversationRequest{})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.chat.StartConversation(ctx, buyer, StartConversationRequest{SellerID: &s, UserID: &u})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.chat.StartConversation(ctx, seller, StartConversationRequest{SellerID: &s})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.chat.StartConversation(ctx, buyer, StartConversationRequest{UserID: &u})
	require.ErrorIs(t, err, ErrForbidden)

	fromBuyer, err := f.chat.StartConversation(ctx, buyer, StartConversationRequest{SellerID: &s})
	require.NoError(t, err)
	fromSeller, err := f.chat.StartConversation(ctx, seller, StartConversationRequest{UserID: &u})
	require.NoError(t, err)
	assert.Equal(t, fromBuyer.ID, fromSeller.ID)

	asSeller, err := f.chat.StartConversation(ctx, dual, StartConversationRequest{UserID: &u})
	require.NoError(t, err)
	assert.Equal(t, dualID, asSeller.Seller.ParticipantID)
	asBuyer, err := f.chat.StartConversation(ctx, dual, StartConversationRequest{SellerID: &s})
	require.NoError(t, err)
	assert.Equal(t, dualID, asBuyer.User.ParticipantID)
}

func TestHistoryRequiresMembership(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	_, err = f.chat.History(ctx, actorFor(t, f, otherID), conv.ID, 0, 20, nil)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.chat.MarkRead(ctx, actorFor(t, f, otherID), conv.ID)
	require.ErrorIs(t, err, ErrForbidden)

	msgs, err := f.chat.History(ctx, actorFor(t, f, sellerID), conv.ID, 0, 20, nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendFansOutToBothParticipants(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	view, err := f.chat.Send(ctx, actorFor(t, f, buyerID), SendMessageRequest{ConversationID: conv.ID, Content: " Hello "})
	require.NoError(t, err)
	assert.Equal(t, "Hello", view.Content)
	assert.Equal(t, models.ParticipantUser, view.SenderType)
	assert.Equal(t, view.SentAt, view.DeliveredAt)
	assert.Empty(t, view.ReadBy)

	require.Len(t, f.publisher.notices, 4)
	assert.Equal(t, notice{userID: buyerID, channel: MessagesChannel, payload: view}, f.publisher.notices[0])
	assert.Equal(t, notice{userID: sellerID, channel: MessagesChannel, payload: view}, f.publisher.notices[1])
	for _, n := range f.publisher.notices[2:] {
		assert.Equal(t, ConversationsChannel, n.channel)
		summary, ok := n.payload.(models.ConversationSummary)
		require.True(t, ok)
		assert.Equal(t, 1, summary.SellerUnreadCount)
		assert.Equal(t, "Hello", *summary.LastMessageSnippet)
	}
}

func TestBuyerSellerScenario(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	buyer := actorFor(t, f, buyerID)
	seller := actorFor(t, f, sellerID)
	s := sellerID

	summary, err := f.chat.StartConversation(ctx, buyer, StartConversationRequest{SellerID: &s})
	require.NoError(t, err)
	_, err = f.chat.Send(ctx, buyer, SendMessageRequest{ConversationID: summary.ID, Content: "Hello"})
	require.NoError(t, err)

	list, err := f.chat.ListConversations(ctx, seller)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].SellerUnreadCount)
	require.NotNil(t, list[0].LastMessageSnippet)
	assert.Equal(t, "Hello", *list[0].LastMessageSnippet)

	read, err := f.chat.MarkRead(ctx, seller, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, read.SellerUnreadCount)

	history, err := f.chat.History(ctx, seller, summary.ID, 0, 20, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].ReadBy, models.ParticipantSeller)
	assert.NotContains(t, history[0].ReadBy, models.ParticipantUser)
}

func TestMarkAsReadScopes(t *testing.T) {
	for _, tc := range []struct {
		scope    string
		stamped  int
		messages int
	}{
		{ReceiptScopePage, DefaultPageSize, 25},
		{ReceiptScopeAll, 25, 25},
	} {
		t.Run(tc.scope, func(t *testing.T) {
			f := newFixture(t, tc.scope)
			ctx := context.Background()
			conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
			require.NoError(t, err)
			for i := 0; i < tc.messages; i++ {
				_, _, err := f.messages.SendMessage(ctx, sellerID, conv.ID, "offer", nil)
				require.NoError(t, err)
			}

			_, err = f.messages.MarkAsRead(ctx, buyerID, conv.ID)
			require.NoError(t, err)

			all, err := f.messages.GetMessages(ctx, conv.ID, 0, MaxPageSize, nil)
			require.NoError(t, err)
			stamped := 0
			for _, m := range all {
				if _, ok := m.ReadBy[models.ParticipantUser]; ok {
					stamped++
				}
			}
			assert.Equal(t, tc.stamped, stamped)
		})
	}
}

func TestMarkAsReadPageScopeSameInstant(t *testing.T) {
	f := newFixture(t, ReceiptScopePage)
	ctx := context.Background()
	conv, err := f.convs.GetOrCreate(ctx, buyerID, sellerID)
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), 0)
	for i := 1; i <= DefaultPageSize+5; i++ {
		_, _, err := f.messages.SendMessage(ctx, sellerID, conv.ID, fmt.Sprintf("offer %02d", i), nil)
		require.NoError(t, err)
	}

	_, err = f.messages.MarkAsRead(ctx, buyerID, conv.ID)
	require.NoError(t, err)

	all, err := f.messages.GetMessages(ctx, conv.ID, 0, MaxPageSize, nil)
	require.NoError(t, err)
	require.Len(t, all, DefaultPageSize+5)
	for i, m := range all {
		_, read := m.ReadBy[models.ParticipantUser]
		assert.Equal(t, i < DefaultPageSize, read, m.Content)
	}
	assert.Equal(t, "offer 25", all[0].Content)
	assert.Equal(t, "offer 01", all[len(all)-1].Content)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "abc", BearerToken("abc"))
	assert.Equal(t, "", BearerToken("  "))
}
