// Package collection implements the multi-connection collection manager:
// a lock-free snapshot of the live interpreter set plus the four wake
// signals that fan out on every mutation. The snapshot lives in a
// support.TransactionalContainer rather than under a mutex so inserts,
// removes, and snapshot reads never block each other.
package collection

import (
	"fmt"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/interpreter"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/observability"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/support"
)

// Snapshot is the immutable connection-set value a Collection publishes.
// Keyed by file descriptor; a host with no real fd (e.g. a synthetic or
// in-process connection) may use any unique non-negative integer.
type Snapshot map[int]*interpreter.Context

func (s Snapshot) clone() Snapshot {
	next := make(Snapshot, len(s)+1)
	for k, v := range s {
		next[k] = v
	}
	return next
}

// Signals bundles the four wake signals the collection manager fires
// together after every mutation.
type Signals struct {
	WakeUpInterpreter *support.NotificationSignal
	WakeUpForOutput   *support.NotificationSignal
	WakeUpForInput    *support.NotificationSignal
	WakeUpForCallback *support.NotificationSignal
}

// NewSignals returns a freshly armed Signals bundle.
func NewSignals() *Signals {
	return &Signals{
		WakeUpInterpreter: support.NewNotificationSignal(),
		WakeUpForOutput:   support.NewNotificationSignal(),
		WakeUpForInput:    support.NewNotificationSignal(),
		WakeUpForCallback: support.NewNotificationSignal(),
	}
}

func (s *Signals) fireAll() {
	s.WakeUpInterpreter.Notify()
	s.WakeUpForOutput.Notify()
	s.WakeUpForInput.Notify()
	s.WakeUpForCallback.Notify()
}

// Collection owns the published connection-set snapshot and its signals.
type Collection struct {
	container *support.TransactionalContainer[Snapshot]
	Signals   *Signals
}

// New returns an empty Collection.
func New() *Collection {
	return &Collection{
		container: support.NewTransactionalContainer[Snapshot](Snapshot{}),
		Signals:   NewSignals(),
	}
}

// Snapshot returns the currently published connection set. Callers must
// treat it as read-only; the collection never mutates a published map.
func (c *Collection) Snapshot() Snapshot {
	return c.container.Load()
}

// Insert publishes ctx under fd. Inserting against an existing fd whose
// interpreter has already exited replaces it; inserting against a live one
// is an error.
func (c *Collection) Insert(fd int, ctx *interpreter.Context) error {
	var insertErr error
	c.container.Update(func(cur Snapshot) Snapshot {
		insertErr = nil
		if existing, ok := cur[fd]; ok && !existing.Exited() {
			insertErr = fmt.Errorf("collection: fd %d already has a live interpreter", fd)
			return cur
		}
		next := cur.clone()
		next[fd] = ctx
		return next
	})
	if insertErr != nil {
		observability.RecordConnectionRejected()
		return insertErr
	}
	observability.RecordConnectionInserted()
	c.Signals.fireAll()
	return nil
}

// Remove drops fd from the set, if present.
func (c *Collection) Remove(fd int) {
	var removed *interpreter.Context
	c.container.Update(func(cur Snapshot) Snapshot {
		existing, ok := cur[fd]
		if !ok {
			return cur
		}
		removed = existing
		next := cur.clone()
		delete(next, fd)
		return next
	})
	if removed != nil {
		if removed.Exited() {
			observability.RecordConnectionExited()
		}
		c.Signals.fireAll()
	}
}
