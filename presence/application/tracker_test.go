package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AzielCF/az-typing/pkg/clock"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/AzielCF/az-typing/presence/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testExpiry = 15 * time.Second

// MockRenderer records typist updates.
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) TypistsChanged(update typing.Update) {
	m.Called(update)
}

func newTestTracker(t *testing.T) (*Tracker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch)
	tr := NewTracker(repository.NewMemoryTypistStore(), clk, testExpiry)
	t.Cleanup(tr.Close)
	return tr, clk
}

func mustStream(t *testing.T, id int64, topic string) conversation.Key {
	t.Helper()
	k, ok := conversation.NewStreamTopic(id, topic)
	require.True(t, ok)
	return k
}

func mustPM(t *testing.T, ids ...int64) conversation.Key {
	t.Helper()
	k, ok := conversation.NewPMGroup(ids...)
	require.True(t, ok)
	return k
}

func TestTracker_StartTwiceLeavesSingleEntry(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	key := mustPM(t, 1, 7)

	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 7, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 7, Op: typing.OpStart}))

	got, err := tr.GetGroupTypists(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, got)
	assert.Equal(t, 1, tr.PendingExpiries())
}

func TestTracker_StopRemovesAndClearsTimer(t *testing.T) {
	tr, clk := newTestTracker(t)
	ctx := context.Background()
	key := mustStream(t, 5, "bug")

	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 4, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 4, Op: typing.OpStop}))

	got, _ := tr.GetGroupTypists(ctx, key)
	assert.Empty(t, got)
	assert.Equal(t, 0, tr.PendingExpiries())
	assert.Equal(t, 0, clk.Pending())
}

func TestTracker_ExpiresWithoutRefresh(t *testing.T) {
	tr, clk := newTestTracker(t)
	ctx := context.Background()
	key := mustStream(t, 5, "bug")

	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 4, Op: typing.OpStart}))

	clk.Advance(testExpiry - time.Millisecond)
	got, _ := tr.GetGroupTypists(ctx, key)
	assert.Equal(t, []int64{4}, got)

	clk.Advance(time.Millisecond)
	got, _ = tr.GetGroupTypists(ctx, key)
	assert.Empty(t, got)
}

func TestTracker_RefreshResetsExpiry(t *testing.T) {
	tr, clk := newTestTracker(t)
	ctx := context.Background()
	key := mustStream(t, 5, "bug")
	start := typing.Event{Conversation: key, TypistID: 4, Op: typing.OpStart}

	require.NoError(t, tr.HandleEvent(ctx, start))
	clk.Advance(time.Second)
	require.NoError(t, tr.HandleEvent(ctx, start))

	// past the first deadline (T+15s) but before the refreshed one (T+16s)
	clk.Advance(testExpiry - time.Millisecond)
	got, _ := tr.GetGroupTypists(ctx, key)
	assert.Equal(t, []int64{4}, got)

	clk.Advance(time.Millisecond)
	got, _ = tr.GetGroupTypists(ctx, key)
	assert.Empty(t, got)
	assert.Equal(t, epoch.Add(16*time.Second), clk.Now())
}

func TestTracker_TypistsExpireIndependently(t *testing.T) {
	tr, clk := newTestTracker(t)
	ctx := context.Background()
	key := mustStream(t, 5, "bug")

	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 4, Op: typing.OpStart}))
	clk.Advance(10 * time.Second)
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 9, Op: typing.OpStart}))

	clk.Advance(5 * time.Second)
	got, _ := tr.GetGroupTypists(ctx, key)
	assert.Equal(t, []int64{9}, got, "typist 4 expired, 9 still inside its window")

	clk.Advance(10 * time.Second)
	got, _ = tr.GetGroupTypists(ctx, key)
	assert.Empty(t, got)
}

func TestTracker_RendersChanges(t *testing.T) {
	tr, clk := newTestTracker(t)
	ctx := context.Background()
	key := mustPM(t, 1, 2)

	r := new(MockRenderer)
	tr.SetRenderer(r)

	r.On("TypistsChanged", typing.Update{Conversation: key, Typists: []int64{2}, Op: typing.OpStart, TypistID: 2}).Once()
	r.On("TypistsChanged", typing.Update{Conversation: key, Typists: []int64{1, 2}, Op: typing.OpStart, TypistID: 1}).Once()
	r.On("TypistsChanged", typing.Update{Conversation: key, Typists: []int64{1}, Op: typing.OpStop, TypistID: 2}).Once()
	r.On("TypistsChanged", typing.Update{Conversation: key, Typists: []int64{}, Op: typing.OpStop, TypistID: 1, Expired: true}).Once()

	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 2, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 2, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 1, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 2, Op: typing.OpStop}))
	// stop for an absent typist is not rendered
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 2, Op: typing.OpStop}))
	clk.Advance(testExpiry)

	r.AssertExpectations(t)
	r.AssertNumberOfCalls(t, "TypistsChanged", 4)
}

func TestTracker_DropsMalformedEvents(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	key := mustPM(t, 1)

	assert.NoError(t, tr.HandleEvent(ctx, typing.Event{TypistID: 1, Op: typing.OpStart}))
	assert.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 0, Op: typing.OpStart}))
	assert.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: 1, Op: "pause"}))

	all, _ := tr.GetAllTypists(ctx)
	assert.Empty(t, all)
	assert.Equal(t, 0, tr.PendingExpiries())
}

func TestTracker_GetAllTypists(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: mustPM(t, 1, 2), TypistID: 8, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: mustStream(t, 5, "bug"), TypistID: 3, Op: typing.OpStart}))
	require.NoError(t, tr.HandleEvent(ctx, typing.Event{Conversation: mustStream(t, 6, "ops"), TypistID: 8, Op: typing.OpStart}))

	all, err := tr.GetAllTypists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 8}, all)

	convs, err := tr.Conversations(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 3)
}

type failingStore struct {
	*repository.MemoryTypistStore
}

func (f failingStore) AddTypist(ctx context.Context, key conversation.Key, id int64) error {
	return errors.New("store down")
}

func TestTracker_StoreErrorIsReturned(t *testing.T) {
	tr := NewTracker(failingStore{repository.NewMemoryTypistStore()}, clock.NewFake(epoch), testExpiry)
	defer tr.Close()

	err := tr.HandleEvent(context.Background(), typing.Event{Conversation: mustPM(t, 1), TypistID: 1, Op: typing.OpStart})
	assert.ErrorContains(t, err, "store down")
	assert.Equal(t, 0, tr.PendingExpiries())
}
