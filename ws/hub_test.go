package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-queue/identity"
	"github.com/tcriess/lightspeed-queue/queue"
	"github.com/tcriess/lightspeed-queue/room"
	"github.com/tcriess/lightspeed-queue/types"
)

func newTestHub() *Hub {
	r := &room.Room{
		Room:  types.Room{Code: "LOBBY", Name: "Office Hours"},
		Queue: queue.NewEngine(identity.NewHasher("test-secret")),
	}
	h := NewHub(r)
	go h.Run()
	return h
}

func registerClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil, nil)
	c.Add(1)
	h.Register <- c
	c.Wait()
	return c
}

func readFrame(t *testing.T, c *Client) types.WebsocketMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		msg := types.WebsocketMessage{}
		assert.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a frame")
		return types.WebsocketMessage{}
	}
}

func readQueueUpdate(t *testing.T, c *Client) types.QueueUpdate {
	t.Helper()
	msg := readFrame(t, c)
	assert.Equal(t, types.WireMessageTypeQueue, msg.Event)
	update := types.QueueUpdate{}
	assert.NoError(t, json.Unmarshal(msg.Data, &update))
	return update
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Send:
		t.Fatal("unexpected frame")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegisterDeliversInitialSnapshot(t *testing.T) {
	h := newTestHub()
	_, _, err := h.Room.Queue.Admit("+15551230000", "", false)
	assert.NoError(t, err)

	c := registerClient(t, h)
	assert.Equal(t, 1, h.NoClients())

	update := readQueueUpdate(t, c)
	assert.Equal(t, "LOBBY", update.RoomCode)
	assert.Len(t, update.Entries, 1)
	assert.Equal(t, 1, update.Length)
}

func TestBroadcastOnQueueChange(t *testing.T) {
	h := newTestHub()
	c := registerClient(t, h)
	update := readQueueUpdate(t, c)
	assert.Empty(t, update.Entries)

	_, _, err := h.Room.Queue.Admit("+15551230000", "", false)
	assert.NoError(t, err)
	h.QueueChanged()

	update = readQueueUpdate(t, c)
	assert.Len(t, update.Entries, 1)

	// an unchanged queue is not re-broadcast
	h.QueueChanged()
	assertNoFrame(t, c)
}

func TestRefreshResendsThroughNewFilter(t *testing.T) {
	h := newTestHub()
	_, _, err := h.Room.Queue.Admit("+15551230000", "HW3", false)
	assert.NoError(t, err)
	_, _, err = h.Room.Queue.Admit("+15551231111", "exam", false)
	assert.NoError(t, err)

	c := registerClient(t, h)
	update := readQueueUpdate(t, c)
	assert.Len(t, update.Entries, 2)

	assert.NoError(t, c.SetFilter(`Entry.Topic == "exam"`))
	h.Refresh <- c
	update = readQueueUpdate(t, c)
	assert.Len(t, update.Entries, 1)
	assert.Equal(t, "exam", update.Entries[0].Entrant.Topic)
	// length always reflects the whole line, not the filtered view
	assert.Equal(t, 2, update.Length)
}

func TestRefreshIgnoresUnknownClient(t *testing.T) {
	h := newTestHub()
	c := NewClient(h, nil, nil)
	h.Refresh <- c
	assertNoFrame(t, c)
}

func TestSendWireFrames(t *testing.T) {
	h := newTestHub()
	c := NewClient(h, nil, nil)

	c.sendWire(types.WireMessageTypeError, types.ErrorResponse{Error: "invalid filter expression"})
	msg := readFrame(t, c)
	assert.Equal(t, types.WireMessageTypeError, msg.Event)
	errResp := types.ErrorResponse{}
	assert.NoError(t, json.Unmarshal(msg.Data, &errResp))
	assert.Equal(t, "invalid filter expression", errResp.Error)

	c.sendWire(types.WireMessageTypeInfo, types.MessageResponse{Message: "filter updated"})
	msg = readFrame(t, c)
	assert.Equal(t, types.WireMessageTypeInfo, msg.Event)
}
