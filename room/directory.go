package room

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/identity"
	"github.com/tcriess/lightspeed-queue/queue"
	"github.com/tcriess/lightspeed-queue/types"
)

// Room is one independently-addressable waiting line: its metadata plus the
// queue engine it exclusively owns. Entrants are never shared across rooms.
type Room struct {
	types.Room
	Queue *queue.Engine
}

// Directory is the owning registry of all rooms, keyed by canonical
// (upper-case) code. Room identity is permanent for the process lifetime.
type Directory struct {
	rooms  map[string]*Room
	cfg    config.RoomsConfig
	hasher *identity.Hasher

	sync.RWMutex
}

func NewDirectory(cfg config.RoomsConfig, hasher *identity.Hasher) *Directory {
	return &Directory{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		hasher: hasher,
	}
}

// NormalizeCode maps a room code to its canonical form. Codes are
// case-insensitive everywhere.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom registers a new room. Without a requested code a fresh one is
// generated, regenerating until it is unused (the alphabet/length choice makes
// collisions negligible, the retry is not what carries uniqueness). With an
// explicit requested code the call is an idempotent get-or-create: if the code
// is taken, the existing room is returned unchanged. That is what keeps the
// well-known default room stable.
func (d *Directory) CreateRoom(name, createdBy, requestedCode string) *Room {
	d.Lock()
	defer d.Unlock()
	var code string
	if requestedCode != "" {
		code = NormalizeCode(requestedCode)
		if existing, ok := d.rooms[code]; ok {
			return existing
		}
	} else {
		for {
			code = d.generateCode()
			if _, ok := d.rooms[code]; !ok {
				break
			}
		}
	}
	room := &Room{
		Room: types.Room{
			Code:      code,
			Name:      name,
			CreatedBy: createdBy,
			CreatedAt: time.Now(),
			Tags:      make(types.JSONStringMap),
		},
		Queue: queue.NewEngine(d.hasher),
	}
	d.rooms[code] = room
	globals.AppLogger.Info("created room", "code", code, "name", name, "createdBy", createdBy)
	return room
}

// GetRoom looks up a room by code, case-insensitively. Returns nil if no such
// room exists.
func (d *Directory) GetRoom(code string) *Room {
	d.RLock()
	defer d.RUnlock()
	return d.rooms[NormalizeCode(code)]
}

// Rooms returns all registered rooms.
func (d *Directory) Rooms() []*Room {
	d.RLock()
	defer d.RUnlock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// RestoreRoom re-registers a persisted room and re-seeds its queue. Returns
// the restored room. Only used at startup.
func (d *Directory) RestoreRoom(meta types.Room, entrants []*types.Entrant) *Room {
	d.Lock()
	defer d.Unlock()
	code := NormalizeCode(meta.Code)
	meta.Code = code
	if meta.Tags == nil {
		meta.Tags = make(types.JSONStringMap)
	}
	room := &Room{
		Room:  meta,
		Queue: queue.NewEngine(d.hasher),
	}
	room.Queue.Restore(entrants)
	d.rooms[code] = room
	return room
}

func (d *Directory) generateCode() string {
	alphabet := d.cfg.CodeAlphabet
	length := d.cfg.CodeLength
	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("room: could not generate room code: " + err.Error())
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code)
}
