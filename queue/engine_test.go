package queue

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-queue/identity"
	"github.com/tcriess/lightspeed-queue/types"
)

func newTestEngine() *Engine {
	return NewEngine(identity.NewHasher("test-secret"))
}

func TestAdmitFIFOOrder(t *testing.T) {
	e := newTestEngine()
	contacts := []string{"+15551230000", "+15551231111", "+15551232222"}
	ids := make([]string, 0, len(contacts))
	for i, contact := range contacts {
		entrant, position, err := e.Admit(contact, "", false)
		assert.NoError(t, err)
		assert.Equal(t, i+1, position)
		ids = append(ids, entrant.Id)
	}
	snapshot := e.Snapshot()
	assert.Len(t, snapshot, 3)
	for i, entry := range snapshot {
		assert.Equal(t, i+1, entry.Position)
		assert.Equal(t, ids[i], entry.Entrant.Id)
	}
}

func TestAdmitDuplicateRejected(t *testing.T) {
	e := newTestEngine()
	_, position, err := e.Admit("+15551230000", "HW3", true)
	assert.NoError(t, err)
	assert.Equal(t, 1, position)

	_, _, err = e.Admit("+15551230000", "other topic", false)
	assert.True(t, errors.Is(err, types.ErrDuplicateEntrant))
	assert.Equal(t, 1, e.Len())

	// the same contact may hold a place again once the first one is gone
	front, _ := e.PopFront()
	assert.NotNil(t, front)
	_, position, err = e.Admit("+15551230000", "", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, position)
}

func TestServeScenario(t *testing.T) {
	e := newTestEngine()
	first, position, err := e.Admit("+15551230000", "HW3", true)
	assert.NoError(t, err)
	assert.Equal(t, 1, position)
	second, position, err := e.Admit("+15551231111", "", false)
	assert.NoError(t, err)
	assert.Equal(t, 2, position)

	served, newFront := e.PopFront()
	assert.NotNil(t, served)
	assert.Equal(t, first.Id, served.Entrant.Id)
	assert.NotNil(t, newFront)
	assert.Equal(t, second.Id, newFront.Entrant.Id)

	snapshot := e.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, second.Id, snapshot[0].Entrant.Id)
	assert.Equal(t, 1, snapshot[0].Position)
}

func TestPopFrontEmpty(t *testing.T) {
	e := newTestEngine()
	served, newFront := e.PopFront()
	assert.Nil(t, served)
	assert.Nil(t, newFront)
	assert.Nil(t, e.PeekFront())
}

func TestPeekFrontDoesNotMutate(t *testing.T) {
	e := newTestEngine()
	entrant, _, err := e.Admit("+15551230000", "", false)
	assert.NoError(t, err)
	for i := 0; i < 3; i++ {
		front := e.PeekFront()
		assert.NotNil(t, front)
		assert.Equal(t, entrant.Id, front.Entrant.Id)
		assert.Equal(t, 1, front.Position)
	}
	assert.Equal(t, 1, e.Len())
}

func TestRemoveMiddleKeepsOrder(t *testing.T) {
	e := newTestEngine()
	first, _, _ := e.Admit("+15551230000", "", false)
	second, _, _ := e.Admit("+15551231111", "", false)
	third, _, _ := e.Admit("+15551232222", "", false)

	removed, newFront := e.Remove(second.Id)
	assert.NotNil(t, removed)
	assert.Equal(t, second.Id, removed.Entrant.Id)
	assert.Equal(t, 2, removed.Position)
	// the front did not change, but it is still reported
	assert.Equal(t, first.Id, newFront.Entrant.Id)

	snapshot := e.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, first.Id, snapshot[0].Entrant.Id)
	assert.Equal(t, 1, snapshot[0].Position)
	assert.Equal(t, third.Id, snapshot[1].Entrant.Id)
	assert.Equal(t, 2, snapshot[1].Position)
}

func TestRemoveIdempotentOnAbsence(t *testing.T) {
	e := newTestEngine()
	entrant, _, _ := e.Admit("+15551230000", "", false)
	_, _, _ = e.Admit("+15551231111", "", false)

	removed, _ := e.Remove(entrant.Id)
	assert.NotNil(t, removed)
	removed, _ = e.Remove(entrant.Id)
	assert.Nil(t, removed)
	assert.Equal(t, 1, e.Len())
	removed, _ = e.Remove("no-such-id")
	assert.Nil(t, removed)
}

func TestPositionsContiguousAfterMixedOps(t *testing.T) {
	e := newTestEngine()
	checkContiguous := func() {
		snapshot := e.Snapshot()
		assert.Len(t, snapshot, e.Len())
		for i, entry := range snapshot {
			assert.Equal(t, i+1, entry.Position)
		}
	}
	a, _, _ := e.Admit("+15551230000", "", false)
	checkContiguous()
	_, _, _ = e.Admit("+15551231111", "", false)
	checkContiguous()
	c, _, _ := e.Admit("+15551232222", "", false)
	checkContiguous()
	e.Remove(c.Id)
	checkContiguous()
	e.PopFront()
	checkContiguous()
	e.Remove(a.Id) // already popped, no-op
	checkContiguous()
	_, _, _ = e.Admit("+15551233333", "", false)
	checkContiguous()
}

func TestPopReturnsSmallestPosition(t *testing.T) {
	e := newTestEngine()
	_, _, _ = e.Admit("+15551230000", "", false)
	_, _, _ = e.Admit("+15551231111", "", false)
	_, _, _ = e.Admit("+15551232222", "", false)
	for e.Len() > 0 {
		front := e.Snapshot()[0]
		popped, _ := e.PopFront()
		assert.Equal(t, front.Entrant.Id, popped.Entrant.Id)
	}
}

func TestFindByFingerprint(t *testing.T) {
	e := newTestEngine()
	entrant, _, _ := e.Admit("+15551230000", "", false)
	found := e.FindByFingerprint("+15551230000")
	assert.NotNil(t, found)
	assert.Equal(t, entrant.Id, found.Id)
	assert.Nil(t, e.FindByFingerprint("+15559999999"))
}

func TestEntrantFieldsAssignedAtAdmission(t *testing.T) {
	e := newTestEngine()
	entrant, _, err := e.Admit("+15551230000", "HW3", true)
	assert.NoError(t, err)
	assert.NotEmpty(t, entrant.Id)
	assert.NotEmpty(t, entrant.DisplayName)
	assert.NotEmpty(t, entrant.Fingerprint)
	assert.Equal(t, "+15551230000", entrant.RawContact)
	assert.Equal(t, "HW3", entrant.Topic)
	assert.True(t, entrant.NotifyConsent)
	assert.False(t, entrant.JoinedAt.IsZero())
}

func TestRestorePreservesOrder(t *testing.T) {
	e := newTestEngine()
	first, _, _ := e.Admit("+15551230000", "", false)
	second, _, _ := e.Admit("+15551231111", "", false)

	snapshot := e.Snapshot()
	entrants := make([]*types.Entrant, 0, len(snapshot))
	for _, entry := range snapshot {
		entrants = append(entrants, entry.Entrant)
	}

	restored := newTestEngine()
	restored.Restore(entrants)
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, first.Id, restored.Snapshot()[0].Entrant.Id)
	assert.Equal(t, second.Id, restored.Snapshot()[1].Entrant.Id)
}

func TestPromotedFrontObservedAtomically(t *testing.T) {
	e := newTestEngine()
	first, _, _ := e.Admit("+15551230000", "", false)
	second, _, _ := e.Admit("+15551231111", "", false)
	third, _, _ := e.Admit("+15551232222", "", false)

	// removing the front reports whoever this removal promoted
	removed, newFront := e.Remove(first.Id)
	assert.Equal(t, 1, removed.Position)
	assert.Equal(t, second.Id, newFront.Entrant.Id)

	served, newFront := e.PopFront()
	assert.Equal(t, second.Id, served.Entrant.Id)
	assert.Equal(t, third.Id, newFront.Entrant.Id)

	served, newFront = e.PopFront()
	assert.Equal(t, third.Id, served.Entrant.Id)
	assert.Nil(t, newFront)
}

func TestConcurrentAdmitsSerialized(t *testing.T) {
	e := newTestEngine()
	const n = 50
	positions := make(chan int, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, position, err := e.Admit(fmt.Sprintf("+1555123%04d", i), "", false)
			assert.NoError(t, err)
			positions <- position
		}(i)
	}
	wg.Wait()
	close(positions)

	// every admission observed a distinct position, together a dense 1..n
	seen := make(map[int]bool, n)
	for position := range positions {
		assert.False(t, seen[position], "position %d handed out twice", position)
		seen[position] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i])
	}

	snapshot := e.Snapshot()
	assert.Len(t, snapshot, n)
	for i, entry := range snapshot {
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestConcurrentMixedOpsKeepLineConsistent(t *testing.T) {
	e := newTestEngine()
	const n = 40
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		entrant, _, err := e.Admit(fmt.Sprintf("+1555123%04d", i), "", false)
		assert.NoError(t, err)
		ids = append(ids, entrant.Id)
	}

	var wg sync.WaitGroup
	for i := 0; i < n/4; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			e.PopFront()
		}()
		go func(id string) {
			defer wg.Done()
			e.Remove(id)
		}(ids[n/2+i])
		go func() {
			defer wg.Done()
			// reads must always observe a fully consistent line
			snapshot := e.Snapshot()
			for j, entry := range snapshot {
				assert.Equal(t, j+1, entry.Position)
			}
		}()
	}
	wg.Wait()

	// n/4 pops and n/4 removals of distinct waiting entrants
	assert.Equal(t, n/2, e.Len())
	snapshot := e.Snapshot()
	assert.Len(t, snapshot, n/2)
	for i, entry := range snapshot {
		assert.Equal(t, i+1, entry.Position)
	}
}
