package persistence

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/types"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ driver.Valuer = &datatypes.JSON{}

// queueEntryRow is the relational shape of one waiting entrant. Ordinal only
// preserves the order within a room, positions are re-derived after restore.
type queueEntryRow struct {
	Id            string `gorm:"primaryKey"`
	RoomCode      string `gorm:"index"`
	Ordinal       int
	DisplayName   string
	Fingerprint   string
	RawContact    string
	Topic         string
	NotifyConsent bool
	JoinedAt      time.Time
}

type GormPersist struct {
	db *gorm.DB
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	p := GormPersist{db: db}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db.Migrator().AutoMigrate(&types.Room{}, &types.TA{}, &queueEntryRow{})
	return db, nil
}

func (p *GormPersist) StoreRoom(room types.Room) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&room).Error
}

func (p *GormPersist) GetRooms() ([]*types.Room, error) {
	rooms := make([]*types.Room, 0)
	err := p.db.Find(&rooms).Error
	return rooms, err
}

func (p *GormPersist) StoreQueue(roomCode string, entrants []*types.Entrant) error {
	rows := make([]queueEntryRow, 0, len(entrants))
	for i, e := range entrants {
		rows = append(rows, queueEntryRow{
			Id:            e.Id,
			RoomCode:      roomCode,
			Ordinal:       i + 1,
			DisplayName:   e.DisplayName,
			Fingerprint:   e.Fingerprint,
			RawContact:    e.RawContact,
			Topic:         e.Topic,
			NotifyConsent: e.NotifyConsent,
			JoinedAt:      e.JoinedAt,
		})
	}
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_code = ?", roomCode).Delete(&queueEntryRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (p *GormPersist) GetQueue(roomCode string) ([]*types.Entrant, error) {
	rows := make([]queueEntryRow, 0)
	err := p.db.Where("room_code = ?", roomCode).Order("ordinal ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entrants := make([]*types.Entrant, 0, len(rows))
	for _, row := range rows {
		entrants = append(entrants, &types.Entrant{
			Id:            row.Id,
			DisplayName:   row.DisplayName,
			Fingerprint:   row.Fingerprint,
			RawContact:    row.RawContact,
			Topic:         row.Topic,
			NotifyConsent: row.NotifyConsent,
			JoinedAt:      row.JoinedAt,
		})
	}
	return entrants, nil
}

func (p *GormPersist) StoreTA(ta types.TA) error {
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&ta).Error
}

func (p *GormPersist) DeleteTA(ta types.TA) error {
	return p.db.Delete(&ta).Error
}

func (p *GormPersist) GetTAs() ([]*types.TA, error) {
	tas := make([]*types.TA, 0)
	err := p.db.Find(&tas).Error
	return tas, err
}

func (p *GormPersist) Close() error {
	return nil
}
