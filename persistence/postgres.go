package persistence

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
)

// PostgresPersist is the plain database/sql PostgreSQL backend. Like the raw
// SQLite backend it is kept for existing stores, new setups should configure
// type = "postgres" instead.
type PostgresPersist struct {
	db *sql.DB
}

func NewPostgresPersister(cfg *config.Config) (Persister, error) {
	db, err := setupPostgresDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	p := PostgresPersist{db: db}
	return &p, nil
}

func setupPostgresDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.PersistenceConfig.PostgresConfig.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.PersistenceConfig.PostgresConfig.DSN)
	if err != nil {
		return nil, err
	}
	query := `CREATE TABLE IF NOT EXISTS rooms (
code TEXT PRIMARY KEY,
name TEXT NOT NULL,
created_by TEXT DEFAULT '' NOT NULL,
created TIMESTAMP WITH TIME ZONE DEFAULT now() NOT NULL,
tags JSONB DEFAULT '{}'::jsonb NOT NULL
);
`
	_, err = db.Exec(query)
	if err != nil {
		return nil, err
	}
	query = `CREATE TABLE IF NOT EXISTS tas (
id TEXT PRIMARY KEY,
name TEXT NOT NULL,
is_active BOOLEAN DEFAULT TRUE NOT NULL
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
raw_contact TEXT DEFAULT '' NOT NULL,
topic TEXT DEFAULT '' NOT NULL,
notify_consent BOOLEAN DEFAULT FALSE NOT NULL,
joined TIMESTAMP WITH TIME ZONE DEFAULT now() NOT NULL,
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

func (p *PostgresPersist) StoreRoom(room types.Room) error {
	tags, err := room.Tags.Value()
	if err != nil {
		return err
	}
	query := `INSERT INTO rooms (code,name,created_by,created,tags) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name,created_by=EXCLUDED.created_by,created=EXCLUDED.created,tags=EXCLUDED.tags;`
	_, err = p.db.Exec(query, room.Code, room.Name, room.CreatedBy, room.CreatedAt, tags)
	return err
}

func (p *PostgresPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	query := `SELECT code,name,created_by,created,tags FROM rooms;`
	rows, err := p.db.Query(query)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var room types.Room
		var tagsRaw string
		err = rows.Scan(&room.Code, &room.Name, &room.CreatedBy, &room.CreatedAt, &tagsRaw)
		if err != nil {
			return nil, err
		}
		tags := make(types.JSONStringMap)
		_ = tags.Scan(tagsRaw)
		room.Tags = tags
		rooms = append(rooms, &room)
	}
	return rooms, nil
}

func (p *PostgresPersist) StoreQueue(roomCode string, entrants []*types.Entrant) error {
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
		_, err = tx.Exec(query, entrant.Id, roomCode, i+1, entrant.DisplayName, entrant.Fingerprint, entrant.RawContact, entrant.Topic, entrant.NotifyConsent, entrant.JoinedAt)
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

func (p *PostgresPersist) GetQueue(roomCode string) ([]*types.Entrant, error) {
	entrants := make([]*types.Entrant, 0)
	query := `SELECT id,display_name,fingerprint,raw_contact,topic,notify_consent,joined FROM queue_entries WHERE room_code=$1 ORDER BY ordinal;`
	rows, err := p.db.Query(query, roomCode)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entrant types.Entrant
		var joined sql.NullTime
		err = rows.Scan(&entrant.Id, &entrant.DisplayName, &entrant.Fingerprint, &entrant.RawContact, &entrant.Topic, &entrant.NotifyConsent, &joined)
		if err != nil {
			return nil, err
		}
		if joined.Valid {
			entrant.JoinedAt = joined.Time
		} else {
			entrant.JoinedAt = time.Now()
		}
		entrants = append(entrants, &entrant)
	}
	return entrants, nil
}

func (p *PostgresPersist) StoreTA(ta types.TA) error {
	query := `INSERT INTO tas (id,name,is_active) VALUES ($1,$2,$3) ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name,is_active=EXCLUDED.is_active;`
	_, err := p.db.Exec(query, ta.Id, ta.Name, ta.IsActive)
	return err
}

func (p *PostgresPersist) DeleteTA(ta types.TA) error {
	query := `DELETE FROM tas WHERE id=$1;`
	_, err := p.db.Exec(query, ta.Id)
	return err
}

func (p *PostgresPersist) GetTAs() ([]*types.TA, error) {
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

func (p *PostgresPersist) Close() error {
	return p.db.Close()
}
