package persistence

import (
	"fmt"
	"time"

	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
)

// Persister is the optional durability adapter. The core runs purely in
// memory, a persister only has to preserve the room/entrant/TA shapes and the
// order of each queue (positions stay derived, only the order is stored).
type Persister interface {
	StoreRoom(types.Room) error
	GetRooms() ([]*types.Room, error)
	StoreQueue(roomCode string, entrants []*types.Entrant) error
	GetQueue(roomCode string) ([]*types.Entrant, error)
	StoreTA(types.TA) error
	DeleteTA(types.TA) error
	GetTAs() ([]*types.TA, error)
	Close() error
}

// NewPersister builds the configured persistence backend, or nil if
// persistence is not configured. If no type is set, the deprecated sqlite /
// postgres sub-blocks are tried (sqlite > postgres).
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "buntdb":
		return NewBuntPersister(cfg)
	case "sqlite", "postgres":
		return NewGormPersister(cfg)
	case "":
		if cfg.PersistenceConfig.SQLiteConfig.DSN != "" {
			return NewSQLitePersister(cfg)
		}
		if cfg.PersistenceConfig.PostgresConfig.DSN != "" {
			return NewPostgresPersister(cfg)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
}

// entrantRecord is the persisted shape of an entrant. The outward-facing
// Entrant JSON hides the fingerprint and the raw contact, the persister needs
// both to restore a working queue.
type entrantRecord struct {
	Id            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Fingerprint   string `json:"fingerprint"`
	RawContact    string `json:"raw_contact"`
	Topic         string `json:"topic"`
	NotifyConsent bool   `json:"notify_consent"`
	JoinedAt      int64  `json:"joined_at"`
}

func toRecord(e *types.Entrant) entrantRecord {
	return entrantRecord{
		Id:            e.Id,
		DisplayName:   e.DisplayName,
		Fingerprint:   e.Fingerprint,
		RawContact:    e.RawContact,
		Topic:         e.Topic,
		NotifyConsent: e.NotifyConsent,
		JoinedAt:      e.JoinedAt.Unix(),
	}
}

func fromRecord(r entrantRecord) *types.Entrant {
	return &types.Entrant{
		Id:            r.Id,
		DisplayName:   r.DisplayName,
		Fingerprint:   r.Fingerprint,
		RawContact:    r.RawContact,
		Topic:         r.Topic,
		NotifyConsent: r.NotifyConsent,
		JoinedAt:      time.Unix(r.JoinedAt, 0),
	}
}
