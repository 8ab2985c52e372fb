package persistence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
	"github.com/tidwall/buntdb"
)

type BuntDBPersist struct {
	db   *buntdb.DB
	lock *flock.Flock
}

// NewBuntPersister opens the BuntDB file store. The store file is guarded by
// a flock so two server instances cannot corrupt one database.
func NewBuntPersister(cfg *config.Config) (Persister, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	lockPath := cfg.PersistenceConfig.FlockPath
	if lockPath == "" {
		lockPath = cfg.PersistenceConfig.DSN + ".lock"
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("store %s is locked by another process", cfg.PersistenceConfig.DSN)
	}
	db, err := buntdb.Open(cfg.PersistenceConfig.DSN)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &BuntDBPersist{db: db, lock: lock}, nil
}

func (p *BuntDBPersist) StoreRoom(room types.Room) error {
	r, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("room:"+room.Code, string(r), nil)
		return err
	})
}

func (p *BuntDBPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("room:*", func(key, val string) bool {
			room := &types.Room{}
			if err := json.Unmarshal([]byte(val), room); err == nil {
				rooms = append(rooms, room)
			}
			return true
		})
	})
	return rooms, err
}

// StoreQueue replaces the persisted line of one room with the given entrants,
// in order. The order is the only positional information stored.
func (p *BuntDBPersist) StoreQueue(roomCode string, entrants []*types.Entrant) error {
	records := make([]entrantRecord, 0, len(entrants))
	for _, entrant := range entrants {
		records = append(records, toRecord(entrant))
	}
	q, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("queue:"+roomCode, string(q), nil)
		return err
	})
}

func (p *BuntDBPersist) GetQueue(roomCode string) ([]*types.Entrant, error) {
	entrants := make([]*types.Entrant, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		q, err := tx.Get("queue:" + roomCode)
		if err != nil {
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}
		records := make([]entrantRecord, 0)
		if err := json.Unmarshal([]byte(q), &records); err != nil {
			return err
		}
		for _, record := range records {
			entrants = append(entrants, fromRecord(record))
		}
		return nil
	})
	return entrants, err
}

func (p *BuntDBPersist) StoreTA(ta types.TA) error {
	t, err := json.Marshal(ta)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("ta:"+ta.Id, string(t), nil)
		return err
	})
}

func (p *BuntDBPersist) DeleteTA(ta types.TA) error {
	if ta.Id == "" {
		return fmt.Errorf("no ta id")
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete("ta:" + ta.Id)
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

func (p *BuntDBPersist) GetTAs() ([]*types.TA, error) {
	tas := make([]*types.TA, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("ta:*", func(key, val string) bool {
			if !strings.HasPrefix(key, "ta:") {
				return true
			}
			ta := &types.TA{}
			if err := json.Unmarshal([]byte(val), ta); err == nil {
				tas = append(tas, ta)
			}
			return true
		})
	})
	return tas, err
}

func (p *BuntDBPersist) Close() error {
	err := p.db.Close()
	if p.lock != nil {
		_ = p.lock.Unlock()
	}
	return err
}
