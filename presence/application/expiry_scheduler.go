package application

import (
	"sync"
	"time"

	"github.com/AzielCF/az-typing/pkg/clock"
)

type scheduledTimer struct {
	timer clock.Timer
	token uint64
}

// ExpiryScheduler keeps at most one pending timer per key. Rescheduling a key
// cancels the previous timer in the same critical section, and a callback
// whose timer was replaced or cleared while already firing is dropped.
type ExpiryScheduler[K comparable] struct {
	mu     sync.Mutex
	clock  clock.Clock
	seq    uint64
	timers map[K]scheduledTimer
}

func NewExpiryScheduler[K comparable](c clock.Clock) *ExpiryScheduler[K] {
	if c == nil {
		c = clock.Real()
	}
	return &ExpiryScheduler[K]{
		clock:  c,
		timers: make(map[K]scheduledTimer),
	}
}

// KickstartTimer cancels any timer for key and schedules onExpire after delay.
func (s *ExpiryScheduler[K]) KickstartTimer(key K, delay time.Duration, onExpire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked(key)

	s.seq++
	token := s.seq
	t := s.clock.AfterFunc(delay, func() {
		s.fire(key, token, onExpire)
	})
	s.timers[key] = scheduledTimer{timer: t, token: token}
}

// ClearTimer cancels the timer for key and reports whether one was pending.
func (s *ExpiryScheduler[K]) ClearTimer(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(key)
}

func (s *ExpiryScheduler[K]) Pending(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

func (s *ExpiryScheduler[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending timer.
func (s *ExpiryScheduler[K]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.timers {
		s.clearLocked(key)
	}
}

func (s *ExpiryScheduler[K]) clearLocked(key K) bool {
	cur, ok := s.timers[key]
	if !ok {
		return false
	}
	cur.timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *ExpiryScheduler[K]) fire(key K, token uint64, onExpire func()) {
	s.mu.Lock()
	cur, ok := s.timers[key]
	if !ok || cur.token != token {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	onExpire()
}
