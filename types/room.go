package types

import "time"

// Room is the metadata of one independently-addressable queue. The code is
// short, human-typeable and stored in its canonical (upper-case) form.
// Rooms live for the process lifetime, there is no delete.
type Room struct {
	Code      string        `json:"code" gorm:"primaryKey"`
	Name      string        `json:"name"`
	CreatedBy string        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	Tags      JSONStringMap `json:"tags"` // tags
}
