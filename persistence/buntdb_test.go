package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
)

func newBuntStore(t *testing.T) Persister {
	t.Helper()
	cfg := &config.Config{
		PersistenceConfig: config.PersistenceConfig{
			Type: "buntdb",
			DSN:  filepath.Join(t.TempDir(), "store.db"),
		},
	}
	p, err := NewPersister(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestBuntRoomRoundTrip(t *testing.T) {
	p := newBuntStore(t)
	room := types.Room{
		Code:      "LOBBY",
		Name:      "Office Hours",
		CreatedBy: "system",
		CreatedAt: time.Now().Truncate(time.Second),
		Tags:      types.JSONStringMap{"course": "cs101"},
	}
	assert.NoError(t, p.StoreRoom(room))

	rooms, err := p.GetRooms()
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)
	assert.Equal(t, "LOBBY", rooms[0].Code)
	assert.Equal(t, "cs101", rooms[0].Tags["course"])
}

func TestBuntQueueRoundTripKeepsOrderAndContact(t *testing.T) {
	p := newBuntStore(t)
	joined := time.Now().Truncate(time.Second)
	entrants := []*types.Entrant{
		{Id: "e1", DisplayName: "First Name", Fingerprint: "fp1", RawContact: "+15551230000", Topic: "HW3", NotifyConsent: true, JoinedAt: joined},
		{Id: "e2", DisplayName: "Second Name", Fingerprint: "fp2", RawContact: "+15551231111", JoinedAt: joined},
	}
	assert.NoError(t, p.StoreQueue("LOBBY", entrants))

	restored, err := p.GetQueue("LOBBY")
	assert.NoError(t, err)
	assert.Len(t, restored, 2)
	assert.Equal(t, "e1", restored[0].Id)
	assert.Equal(t, "e2", restored[1].Id)
	assert.Equal(t, "fp1", restored[0].Fingerprint)
	assert.Equal(t, "+15551230000", restored[0].RawContact)
	assert.True(t, restored[0].NotifyConsent)
	assert.Equal(t, joined.Unix(), restored[0].JoinedAt.Unix())

	// a later store replaces the whole line
	assert.NoError(t, p.StoreQueue("LOBBY", entrants[1:]))
	restored, err = p.GetQueue("LOBBY")
	assert.NoError(t, err)
	assert.Len(t, restored, 1)
	assert.Equal(t, "e2", restored[0].Id)
}

func TestBuntQueueEmptyForUnknownRoom(t *testing.T) {
	p := newBuntStore(t)
	restored, err := p.GetQueue("NOSUCH")
	assert.NoError(t, err)
	assert.Empty(t, restored)
}

func TestBuntTARoundTrip(t *testing.T) {
	p := newBuntStore(t)
	assert.NoError(t, p.StoreTA(types.TA{Id: "t1", Name: "Alice", IsActive: true}))
	assert.NoError(t, p.StoreTA(types.TA{Id: "t2", Name: "Bob", IsActive: true}))

	tas, err := p.GetTAs()
	assert.NoError(t, err)
	assert.Len(t, tas, 2)

	assert.NoError(t, p.DeleteTA(types.TA{Id: "t1"}))
	assert.NoError(t, p.DeleteTA(types.TA{Id: "t1"})) // already gone, not an error
	assert.Error(t, p.DeleteTA(types.TA{}))

	tas, err = p.GetTAs()
	assert.NoError(t, err)
	assert.Len(t, tas, 1)
	assert.Equal(t, "Bob", tas[0].Name)
}

func TestBuntStoreIsLocked(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "store.db")
	cfg := &config.Config{PersistenceConfig: config.PersistenceConfig{Type: "buntdb", DSN: dsn}}
	p, err := NewPersister(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	_, err = NewPersister(cfg)
	assert.Error(t, err)
}
