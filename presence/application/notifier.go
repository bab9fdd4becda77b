package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AzielCF/az-typing/pkg/clock"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/sirupsen/logrus"
)

// Notifier is the outbound side. It turns a stream of local compose events
// into at most one start per continuous activity, always followed by exactly
// one stop (on cancel, finish, idle timeout or conversation switch).
//
// Notifications are emitted with the notifier's mutex held so the transport
// sees them in transition order. Transports that can block should be wrapped
// in a PooledTransport.
type Notifier struct {
	mu          sync.Mutex
	transport   typing.Transport
	clock       clock.Clock
	idleTimeout time.Duration
	resolver    conversation.Resolver

	// RefreshInterval, when positive, re-emits start for the current
	// conversation on input arriving at least that long after the last start,
	// keeping remote expiry timers alive during long compositions.
	RefreshInterval time.Duration

	current   conversation.Key
	active    bool
	lastStart time.Time
	idleTimer clock.Timer
	gen       uint64
}

func NewNotifier(transport typing.Transport, clk clock.Clock, idleTimeout time.Duration, resolver conversation.Resolver) *Notifier {
	if clk == nil {
		clk = clock.Real()
	}
	return &Notifier{
		transport:   transport,
		clock:       clk,
		idleTimeout: idleTimeout,
		resolver:    resolver,
	}
}

// Update is the transition function. A nil key means the user is no longer
// composing anywhere.
func (n *Notifier) Update(ctx context.Context, key *conversation.Key) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if key == nil || key.IsZero() {
		n.stopLocked(ctx)
		return
	}

	if n.active && n.current == *key {
		if n.RefreshInterval > 0 && n.clock.Now().Sub(n.lastStart) >= n.RefreshInterval {
			n.emitLocked(ctx, n.current, typing.OpStart)
			n.lastStart = n.clock.Now()
		}
		n.armLocked()
		return
	}

	n.stopLocked(ctx)

	n.current = *key
	n.active = true
	n.lastStart = n.clock.Now()
	n.emitLocked(ctx, n.current, typing.OpStart)
	n.armLocked()
}

// HandleInput feeds one compose-box change. Blank content or a recipient
// that does not resolve to a conversation counts as a cancel.
func (n *Notifier) HandleInput(ctx context.Context, rcpt conversation.Recipient, content string) {
	if strings.TrimSpace(content) == "" {
		n.Update(ctx, nil)
		return
	}
	key, ok := n.resolver.Resolve(rcpt)
	if !ok {
		n.Update(ctx, nil)
		return
	}
	n.Update(ctx, &key)
}

// Cancel is called when the compose box is closed.
func (n *Notifier) Cancel(ctx context.Context) {
	n.Update(ctx, nil)
}

// Finish is called once the message has been sent.
func (n *Notifier) Finish(ctx context.Context) {
	n.Update(ctx, nil)
}

// Current returns the conversation the user is signalled as typing in.
func (n *Notifier) Current() (conversation.Key, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.active
}

// Close emits the pending stop, if any.
func (n *Notifier) Close(ctx context.Context) {
	n.Update(ctx, nil)
}

func (n *Notifier) stopLocked(ctx context.Context) {
	n.disarmLocked()
	if !n.active {
		return
	}
	old := n.current
	n.current = conversation.Key{}
	n.active = false
	n.emitLocked(ctx, old, typing.OpStop)
}

// armLocked replaces the idle timer. The generation bump makes a callback
// from the replaced timer a no-op even if it already started running.
func (n *Notifier) armLocked() {
	n.disarmLocked()
	gen := n.gen
	n.idleTimer = n.clock.AfterFunc(n.idleTimeout, func() {
		n.idle(gen)
	})
}

func (n *Notifier) disarmLocked() {
	n.gen++
	if n.idleTimer != nil {
		n.idleTimer.Stop()
		n.idleTimer = nil
	}
}

func (n *Notifier) idle(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if gen != n.gen {
		return
	}
	n.idleTimer = nil
	if !n.active {
		return
	}
	logrus.Debugf("[NOTIFIER] Idle timeout in %s", n.current)
	n.stopLocked(context.Background())
}

func (n *Notifier) emitLocked(ctx context.Context, key conversation.Key, op typing.Operation) {
	if n.transport == nil {
		return
	}
	if err := n.transport.Notify(ctx, key, op); err != nil {
		logrus.WithError(err).Warnf("[NOTIFIER] Failed to send %s for %s", op, key)
	}
}
