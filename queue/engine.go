package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tcriess/lightspeed-queue/identity"
	"github.com/tcriess/lightspeed-queue/names"
	"github.com/tcriess/lightspeed-queue/types"
)

// Engine is the ordered waiting line of a single room. All mutations on one
// engine are serialized by its mutex, reads observe the state fully before or
// fully after a mutation. Engines of different rooms are fully independent.
//
// The canonical order is the entries slice. Positions are derived from it at
// read time and never stored, so they are always a contiguous run 1..N.
type Engine struct {
	entries []*entry
	arrival uint64 // monotonically increasing arrival counter
	hasher  *identity.Hasher

	sync.RWMutex
}

type entry struct {
	entrant *types.Entrant
	seq     uint64
}

func NewEngine(hasher *identity.Hasher) *Engine {
	return &Engine{
		entries: make([]*entry, 0),
		hasher:  hasher,
	}
}

// Admit appends a new entrant to the tail of the line. It fails with
// types.ErrDuplicateEntrant if an entry with the same contact fingerprint is
// already waiting: a student holds at most one place per room. On success the
// new entrant is returned together with its 1-based position at the moment of
// admission.
func (e *Engine) Admit(rawContact, topic string, notifyConsent bool) (*types.Entrant, int, error) {
	fingerprint := e.hasher.Fingerprint(rawContact)
	e.Lock()
	defer e.Unlock()
	for _, en := range e.entries {
		if en.entrant.Fingerprint == fingerprint {
			return nil, 0, fmt.Errorf("admit %s: %w", en.entrant.DisplayName, types.ErrDuplicateEntrant)
		}
	}
	entrant := &types.Entrant{
		Id:            uuid.New().String(),
		DisplayName:   names.Generate(),
		Fingerprint:   fingerprint,
		RawContact:    rawContact,
		Topic:         topic,
		NotifyConsent: notifyConsent,
		JoinedAt:      time.Now(),
	}
	e.arrival++
	e.entries = append(e.entries, &entry{entrant: entrant, seq: e.arrival})
	return entrant, len(e.entries), nil
}

// PeekFront returns the entry currently at position 1, or nil if the line is
// empty. Never mutates.
func (e *Engine) PeekFront() *types.QueueEntry {
	e.RLock()
	defer e.RUnlock()
	return e.front()
}

// PopFront removes and returns the front entry. This is the "serve"
// operation: consumption, not a status change. An empty line yields nil, not
// an error. The second return value is the entry promoted to the front by
// this very pop (nil if the line is now empty), taken inside the same
// critical section so a concurrent mutation cannot slip in between.
func (e *Engine) PopFront() (*types.QueueEntry, *types.QueueEntry) {
	e.Lock()
	defer e.Unlock()
	if len(e.entries) == 0 {
		return nil, nil
	}
	front := e.entries[0]
	e.entries = e.entries[1:]
	return &types.QueueEntry{Entrant: front.entrant, Position: 1}, e.front()
}

// Remove takes the entry with the given entrant id out of the line wherever
// it sits. The returned entry carries the position it held at the moment of
// removal (1 means the front was evicted). An unknown id yields nil. The
// second return value is the entry at the front after the removal, observed
// inside the same critical section.
func (e *Engine) Remove(entrantId string) (*types.QueueEntry, *types.QueueEntry) {
	e.Lock()
	defer e.Unlock()
	for i, en := range e.entries {
		if en.entrant.Id == entrantId {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			return &types.QueueEntry{Entrant: en.entrant, Position: i + 1}, e.front()
		}
	}
	return nil, nil
}

// front returns the current front entry. Callers must hold the lock.
func (e *Engine) front() *types.QueueEntry {
	if len(e.entries) == 0 {
		return nil
	}
	return &types.QueueEntry{Entrant: e.entries[0].entrant, Position: 1}
}

// Snapshot returns every waiting entry with freshly computed 1-based
// positions. This is the only place positions are materialized.
func (e *Engine) Snapshot() []types.QueueEntry {
	e.RLock()
	defer e.RUnlock()
	snapshot := make([]types.QueueEntry, 0, len(e.entries))
	for i, en := range e.entries {
		snapshot = append(snapshot, types.QueueEntry{Entrant: en.entrant, Position: i + 1})
	}
	return snapshot
}

// FindByFingerprint returns the waiting entrant admitted with the same raw
// contact, or nil.
func (e *Engine) FindByFingerprint(rawContact string) *types.Entrant {
	fingerprint := e.hasher.Fingerprint(rawContact)
	e.RLock()
	defer e.RUnlock()
	for _, en := range e.entries {
		if en.entrant.Fingerprint == fingerprint {
			return en.entrant
		}
	}
	return nil
}

// Len returns the number of waiting entries.
func (e *Engine) Len() int {
	e.RLock()
	defer e.RUnlock()
	return len(e.entries)
}

// Restore re-seeds the line from persisted entrants, in the given order. Only
// used at startup before the engine is reachable from handlers.
func (e *Engine) Restore(entrants []*types.Entrant) {
	e.Lock()
	defer e.Unlock()
	e.entries = make([]*entry, 0, len(entrants))
	for _, entrant := range entrants {
		e.arrival++
		e.entries = append(e.entries, &entry{entrant: entrant, seq: e.arrival})
	}
}
