package persistence

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
)

// SQLitePersist is the plain database/sql SQLite backend. It predates the
// gorm backend and is kept for stores created before the switch, new setups
// should configure type = "sqlite" instead.
type SQLitePersist struct {
	db *sql.DB
	sync.RWMutex
}

func NewSQLitePersister(cfg *config.Config) (Persister, error) {
	db, err := setupSQLiteDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	return &SQLitePersist{db: db}, nil
}

func setupSQLiteDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.PersistenceConfig.SQLiteConfig.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite3", cfg.PersistenceConfig.SQLiteConfig.DSN)
	if err != nil {
		return nil, err
	}
	query := `CREATE TABLE IF NOT EXISTS rooms (
code TEXT PRIMARY KEY,
name TEXT NOT NULL,
created_by TEXT DEFAULT "" NOT NULL,
created INTEGER DEFAULT 0 NOT NULL,
tags TEXT DEFAULT "{}" NOT NULL
);
`
	_, err = db.Exec(query)
	if err != nil {
		return nil, err
	}
	query = `CREATE TABLE IF NOT EXISTS tas (
id TEXT PRIMARY KEY,
name TEXT NOT NULL,
is_active INTEGER DEFAULT 1 NOT NULL
);`
	_, err = db.Exec(query)
	if err != nil {
		return nil, err
	}
	query = `CREATE TABLE IF NOT EXISTS queue_entries (
id TEXT PRIMARY KEY,
room_code TEXT NOT NULL,
ordinal INTEGER NOT NULL,
display_name TEXT NOT NULL,
fingerprint TEXT NOT NULL,
raw_contact TEXT DEFAULT "" NOT NULL,
topic TEXT DEFAULT "" NOT NULL,
notify_consent INTEGER DEFAULT 0 NOT NULL,
joined INTEGER DEFAULT 0 NOT NULL,
FOREIGN KEY (room_code) REFERENCES rooms (code) ON DELETE CASCADE ON UPDATE CASCADE
);`
	_, err = db.Exec(query)
	if err != nil {
		return nil, err
	}
	query = `CREATE INDEX IF NOT EXISTS queue_entries_room_idx ON queue_entries (room_code, ordinal);`
	_, err = db.Exec(query)
	if err != nil {
		return nil, err
	}
	return db, err
}

func (p *SQLitePersist) StoreRoom(room types.Room) error {
	p.Lock()
	defer p.Unlock()
	tags, err := room.Tags.Value()
	if err != nil {
		return err
	}
	query := `INSERT INTO rooms (code,name,created_by,created,tags) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name,created_by=EXCLUDED.created_by,created=EXCLUDED.created,tags=EXCLUDED.tags;`
	_, err = p.db.Exec(query, room.Code, room.Name, room.CreatedBy, room.CreatedAt.Unix(), tags)
	return err
}

func (p *SQLitePersist) GetRooms() ([]*types.Room, error) {
	p.RLock()
	defer p.RUnlock()
	rooms := make([]*types.Room, 0)
	query := `SELECT code,name,created_by,created,tags FROM rooms;`
	rows, err := p.db.Query(query)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var room types.Room
		var created int64
		var tagsRaw string
		err = rows.Scan(&room.Code, &room.Name, &room.CreatedBy, &created, &tagsRaw)
		if err != nil {
			return nil, err
		}
		room.CreatedAt = time.Unix(created, 0)
		tags := make(types.JSONStringMap)
		_ = tags.Scan(tagsRaw)
		room.Tags = tags
		rooms = append(rooms, &room)
	}
	return rooms, nil
}

func (p *SQLitePersist) StoreQueue(roomCode string, entrants []*types.Entrant) error {
	p.Lock()
	defer p.Unlock()
	tx, err := p.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	query := `DELETE FROM queue_entries WHERE room_code=$1;`
	_, err = tx.Exec(query, roomCode)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	query = `INSERT INTO queue_entries (id,room_code,ordinal,display_name,fingerprint,raw_contact,topic,notify_consent,joined) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	for i, entrant := range entrants {
		_, err = tx.Exec(query, entrant.Id, roomCode, i+1, entrant.DisplayName, entrant.Fingerprint, entrant.RawContact, entrant.Topic, entrant.NotifyConsent, entrant.JoinedAt.Unix())
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return nil
}

func (p *SQLitePersist) GetQueue(roomCode string) ([]*types.Entrant, error) {
	p.RLock()
	defer p.RUnlock()
	entrants := make([]*types.Entrant, 0)
	query := `SELECT id,display_name,fingerprint,raw_contact,topic,notify_consent,joined FROM queue_entries WHERE room_code=$1 ORDER BY ordinal;`
	rows, err := p.db.Query(query, roomCode)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entrant types.Entrant
		var joined int64
		err = rows.Scan(&entrant.Id, &entrant.DisplayName, &entrant.Fingerprint, &entrant.RawContact, &entrant.Topic, &entrant.NotifyConsent, &joined)
		if err != nil {
			return nil, err
		}
		entrant.JoinedAt = time.Unix(joined, 0)
		entrants = append(entrants, &entrant)
	}
	return entrants, nil
}

func (p *SQLitePersist) StoreTA(ta types.TA) error {
	p.Lock()
	defer p.Unlock()
	query := `INSERT INTO tas (id,name,is_active) VALUES ($1,$2,$3) ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name,is_active=EXCLUDED.is_active;`
	_, err := p.db.Exec(query, ta.Id, ta.Name, ta.IsActive)
	return err
}

func (p *SQLitePersist) DeleteTA(ta types.TA) error {
	p.Lock()
	defer p.Unlock()
	query := `DELETE FROM tas WHERE id=$1;`
	_, err := p.db.Exec(query, ta.Id)
	return err
}

func (p *SQLitePersist) GetTAs() ([]*types.TA, error) {
	p.RLock()
	defer p.RUnlock()
	tas := make([]*types.TA, 0)
	query := `SELECT id,name,is_active FROM tas;`
	rows, err := p.db.Query(query)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ta types.TA
		err = rows.Scan(&ta.Id, &ta.Name, &ta.IsActive)
		if err != nil {
			return nil, err
		}
		tas = append(tas, &ta)
	}
	return tas, nil
}

func (p *SQLitePersist) Close() error {
	p.Lock()
	defer p.Unlock()
	return p.db.Close()
}
