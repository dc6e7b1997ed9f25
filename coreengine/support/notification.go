package support

import (
	"sync"
	"time"
)

// NotificationSignal is a one-shot notify/wait primitive that re-arms on
// Wait: once a waiter observes a pending notification it clears, so the
// next Notify is required before a subsequent Wait can return again.
// Shaped after the condition-variable pattern kernel/rate_limiter.go
// reaches for via sync.Cond-equivalent signaling in its resource waiters,
// backed by a channel instead since Go favors channels over raw condition
// variables for this "wake one waiter, possibly many times" shape.
type NotificationSignal struct {
	mu      sync.Mutex
	pending bool
	ch      chan struct{}
}

// NewNotificationSignal returns a signal with no pending notification.
func NewNotificationSignal() *NotificationSignal {
	return &NotificationSignal{ch: make(chan struct{}, 1)}
}

// Notify marks the signal pending, waking one blocked Wait if any. Multiple
// Notify calls before a Wait coalesce into a single pending wake, matching
// the collection manager's "fire all four signals after any mutation"
// fan-out, where a signal may already be pending when fired again.
func (s *NotificationSignal) Notify() {
	s.mu.Lock()
	already := s.pending
	s.pending = true
	s.mu.Unlock()
	if !already {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until a notification is pending, then clears it (re-arming
// the signal for the next Notify).
func (s *NotificationSignal) Wait() {
	<-s.ch
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// WaitTimeout blocks until a notification is pending or d elapses,
// reporting which happened. A timeout leaves pending untouched, so a
// notification that arrives immediately afterward is not lost.
func (s *NotificationSignal) WaitTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ch:
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		return true
	case <-t.C:
		return false
	}
}
