package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/identity"
)

func newTestDirectory() *Directory {
	cfg := config.RoomsConfig{
		CodeAlphabet:    "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
		CodeLength:      6,
		DefaultRoomCode: "LOBBY",
		DefaultRoomName: "Office Hours",
	}
	return NewDirectory(cfg, identity.NewHasher("test-secret"))
}

func TestGeneratedCodesAreDistinct(t *testing.T) {
	d := newTestDirectory()
	roomA := d.CreateRoom("Room A", "alice", "")
	roomB := d.CreateRoom("Room B", "bob", "")
	assert.NotEqual(t, roomA.Code, roomB.Code)
	assert.Len(t, roomA.Code, 6)
	for _, r := range roomA.Code {
		assert.True(t, strings.ContainsRune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789", r))
	}
	assert.Nil(t, d.GetRoom("NOSUCH"))
}

func TestExplicitCodeGetOrCreate(t *testing.T) {
	d := newTestDirectory()
	first := d.CreateRoom("Office Hours", "system", "LOBBY")
	second := d.CreateRoom("Different Name", "someone-else", "lobby")
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	// the existing room is returned unchanged
	assert.Equal(t, "Office Hours", second.Name)
	assert.Equal(t, "system", second.CreatedBy)
}

func TestLookupCaseInsensitive(t *testing.T) {
	d := newTestDirectory()
	created := d.CreateRoom("Room", "alice", "AbC234")
	assert.Equal(t, "ABC234", created.Code)
	assert.Same(t, created, d.GetRoom("abc234"))
	assert.Same(t, created, d.GetRoom("ABC234"))
	assert.Same(t, created, d.GetRoom(" abc234 "))
}

func TestRoomsAreIsolated(t *testing.T) {
	d := newTestDirectory()
	roomX := d.CreateRoom("X", "alice", "")
	roomY := d.CreateRoom("Y", "alice", "")

	_, _, err := roomX.Queue.Admit("+15551230000", "", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, roomX.Queue.Len())
	assert.Equal(t, 0, roomY.Queue.Len())
	assert.Empty(t, roomY.Queue.Snapshot())

	// the same contact may wait in two rooms at once
	_, position, err := roomY.Queue.Admit("+15551230000", "", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, position)

	roomX.Queue.PopFront()
	assert.Equal(t, 0, roomX.Queue.Len())
	assert.Equal(t, 1, roomY.Queue.Len())
}

func TestRoomsListing(t *testing.T) {
	d := newTestDirectory()
	d.CreateRoom("A", "alice", "")
	d.CreateRoom("B", "bob", "")
	assert.Len(t, d.Rooms(), 2)
}
