package types

import "errors"

// All queue errors are explicit outcomes, so callers can distinguish
// "rejected" from "succeeded". They are matched with errors.Is at the
// HTTP boundary.
var (
	ErrDuplicateEntrant = errors.New("entrant already in queue")
	ErrRoomNotFound     = errors.New("room not found")
	ErrEntrantNotFound  = errors.New("entrant not found in queue")
	ErrTANotFound       = errors.New("ta not found")
)
