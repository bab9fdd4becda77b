package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AzielCF/az-typing/pkg/clock"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/sirupsen/logrus"
)

// typistTimer identifies one typist's expiry window in one conversation.
type typistTimer struct {
	conversation conversation.Key
	typist       int64
}

// Tracker is the inbound side: it keeps the typist sets and removes a typist
// whose start was not refreshed within the expiry timeout, which covers
// stop notifications that never arrive.
//
// Expiry timers are kept per (conversation, typist) rather than per
// conversation: a start from one typist only extends that typist's window,
// so a silent typist still expires while others in the same conversation
// keep typing.
//
// Every mutation and timer operation runs under one mutex. The renderer is
// called with that mutex held so updates reach it in order; it must not call
// HandleEvent.
type Tracker struct {
	mu       sync.Mutex
	store    typing.TypistStore
	timers   *ExpiryScheduler[typistTimer]
	expiry   time.Duration
	renderer typing.Renderer
}

func NewTracker(store typing.TypistStore, clk clock.Clock, expiry time.Duration) *Tracker {
	return &Tracker{
		store:  store,
		timers: NewExpiryScheduler[typistTimer](clk),
		expiry: expiry,
	}
}

// SetRenderer installs the collaborator told about every typist change.
func (t *Tracker) SetRenderer(r typing.Renderer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
}

// HandleEvent applies one inbound notification. Malformed events are dropped
// without error.
func (t *Tracker) HandleEvent(ctx context.Context, ev typing.Event) error {
	if ev.Conversation.IsZero() || ev.TypistID <= 0 || !ev.Op.Valid() {
		logrus.Debugf("[TRACKER] Dropping malformed event %+v", ev)
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Op {
	case typing.OpStart:
		return t.startLocked(ctx, ev)
	default:
		return t.stopLocked(ctx, ev)
	}
}

func (t *Tracker) startLocked(ctx context.Context, ev typing.Event) error {
	before, err := t.store.GetGroupTypists(ctx, ev.Conversation)
	if err != nil {
		return fmt.Errorf("failed to read typists of %s: %w", ev.Conversation, err)
	}
	if err := t.store.AddTypist(ctx, ev.Conversation, ev.TypistID); err != nil {
		return fmt.Errorf("failed to add typist %d to %s: %w", ev.TypistID, ev.Conversation, err)
	}

	tk := typistTimer{conversation: ev.Conversation, typist: ev.TypistID}
	t.timers.KickstartTimer(tk, t.expiry, func() {
		t.expire(tk)
	})

	if contains(before, ev.TypistID) {
		return nil
	}
	logrus.Debugf("[TRACKER] Typist %d started in %s", ev.TypistID, ev.Conversation)
	t.renderLocked(ctx, ev.Conversation, ev.TypistID, typing.OpStart, false)
	return nil
}

func (t *Tracker) stopLocked(ctx context.Context, ev typing.Event) error {
	t.timers.ClearTimer(typistTimer{conversation: ev.Conversation, typist: ev.TypistID})

	removed, err := t.store.RemoveTypist(ctx, ev.Conversation, ev.TypistID)
	if err != nil {
		return fmt.Errorf("failed to remove typist %d from %s: %w", ev.TypistID, ev.Conversation, err)
	}
	if !removed {
		return nil
	}
	logrus.Debugf("[TRACKER] Typist %d stopped in %s", ev.TypistID, ev.Conversation)
	t.renderLocked(ctx, ev.Conversation, ev.TypistID, typing.OpStop, false)
	return nil
}

func (t *Tracker) expire(tk typistTimer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// a start that slipped in between the timer firing and this lock
	// rescheduled the window; leave the typist alone
	if t.timers.Pending(tk) {
		return
	}

	ctx := context.Background()
	removed, err := t.store.RemoveTypist(ctx, tk.conversation, tk.typist)
	if err != nil {
		logrus.WithError(err).Errorf("[TRACKER] Failed to expire typist %d from %s", tk.typist, tk.conversation)
		return
	}
	if !removed {
		return
	}
	logrus.Infof("[TRACKER] Typist %d expired from %s", tk.typist, tk.conversation)
	t.renderLocked(ctx, tk.conversation, tk.typist, typing.OpStop, true)
}

func (t *Tracker) renderLocked(ctx context.Context, key conversation.Key, typist int64, op typing.Operation, expired bool) {
	if t.renderer == nil {
		return
	}
	typists, err := t.store.GetGroupTypists(ctx, key)
	if err != nil {
		logrus.WithError(err).Warnf("[TRACKER] Failed to read typists of %s for rendering", key)
		return
	}
	t.renderer.TypistsChanged(typing.Update{
		Conversation: key,
		Typists:      typists,
		Op:           op,
		TypistID:     typist,
		Expired:      expired,
	})
}

func (t *Tracker) GetGroupTypists(ctx context.Context, key conversation.Key) ([]int64, error) {
	return t.store.GetGroupTypists(ctx, key)
}

func (t *Tracker) GetAllTypists(ctx context.Context) ([]int64, error) {
	return t.store.GetAllTypists(ctx)
}

func (t *Tracker) Conversations(ctx context.Context) ([]conversation.Key, error) {
	return t.store.Conversations(ctx)
}

// PendingExpiries is the number of typists waiting for a refresh.
func (t *Tracker) PendingExpiries() int {
	return t.timers.Len()
}

// Close cancels all expiry timers.
func (t *Tracker) Close() {
	t.timers.Stop()
}

func contains(sorted []int64, id int64) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= id })
	return i < len(sorted) && sorted[i] == id
}
