package types

// TA is a staff member on duty. "Active" is synonymous with "present": removal
// deletes the TA, there is no deactivated state, so IsActive is always true.
// The field stays on the wire shape for client compatibility.
type TA struct {
	Id       string `json:"id" gorm:"primaryKey"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
