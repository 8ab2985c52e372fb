package types

import "encoding/json"

const (
	WireMessageTypeQueue = "queue"
	WireMessageTypeInfo  = "info"
	WireMessageTypeError = "error"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WatchMessage is the only message a watch client sends: an optional expr
// filter applied to every entry before it is included in that client's
// snapshots.
type WatchMessage struct {
	Filter string `json:"filter" mapstructure:"filter"`
}

// QueueUpdate is pushed to watch clients whenever the room's queue changes.
type QueueUpdate struct {
	RoomCode string       `json:"room_code"`
	Entries  []QueueEntry `json:"entries"`
	Length   int          `json:"length"`
}

// The request/response shapes of the HTTP API.

type AdmitRequest struct {
	PhoneNumber   string `json:"phone_number"`
	Topic         string `json:"topic"`
	NotifyConsent bool   `json:"notify_consent"`
}

type AdmitResponse struct {
	Entrant     *Entrant `json:"entrant"`
	Position    int      `json:"position"`
	QueueLength int      `json:"queue_length"`
}

type ServeResponse struct {
	Message string   `json:"message"`
	Entrant *Entrant `json:"entrant"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
	Code string `json:"code"` // optional: explicit code, get-or-create
}

type AddTARequest struct {
	Name string `json:"name"`
}

type TestNotifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
