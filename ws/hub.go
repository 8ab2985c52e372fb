package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/room"
	"github.com/tcriess/lightspeed-queue/types"
)

const (
	maxMessageSize      = 4096
	pongWait            = 2 * time.Minute
	pingPeriod          = time.Minute
	writeWait           = 10 * time.Second
	notifyChannelSize   = 1000
	registerChannelSize = 16
)

// Hub fans queue snapshots out to the watch clients of one room. There is one
// hub per room; hubs of different rooms never interact.
type Hub struct {
	Room *room.Room

	// Registered clients.
	clients map[*Client]struct{}

	// Register a new client to the hub.
	Register chan *Client

	// Unregister a client from the hub.
	Unregister chan *Client

	// Refresh asks for a fresh snapshot for one client, used after its
	// filter changed. Goes through the hub loop so the client's WaitGroup is
	// only ever incremented from there.
	Refresh chan *Client

	// Notify signals that the room's queue changed and a fresh snapshot
	// should go out. Writers never block on it, a full channel means a
	// broadcast is already pending.
	notify chan struct{}

	// hash of the last broadcast snapshot, so unchanged states are not
	// re-sent
	lastHash uint64

	// mutex for manipulating the clients
	sync.RWMutex
}

func NewHub(r *room.Room) *Hub {
	return &Hub{
		Room:       r,
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client, registerChannelSize),
		Unregister: make(chan *Client, registerChannelSize),
		Refresh:    make(chan *Client, registerChannelSize),
		notify:     make(chan struct{}, notifyChannelSize),
	}
}

// NoClients returns the number of clients registered
func (h *Hub) NoClients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// QueueChanged wakes the hub to broadcast a fresh snapshot. Safe to call from
// any goroutine, never blocks the mutation that triggered it.
func (h *Hub) QueueChanged() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run is the main hub event loop handling register, unregister and broadcast.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Lock()
			h.clients[client] = struct{}{}
			h.Unlock()
			// the new client always gets the current state, even if the
			// queue has not changed since the last broadcast
			client.Add(1)
			go h.sendSnapshot(client, h.Room.Queue.Snapshot())
			client.Done()

		case client := <-h.Unregister:
			h.RLock()
			_, ok := h.clients[client]
			h.RUnlock()
			if !ok {
				continue
			}
			h.Lock()
			delete(h.clients, client)
			h.Unlock()
			client.conn.Close()
			// wait for all loops and pending sends before closing the
			// channel; the hub lock must not be held here, pending sends
			// need it to find out the client is gone
			client.Wait()
			close(client.Send)

		case client := <-h.Refresh:
			h.RLock()
			_, ok := h.clients[client]
			h.RUnlock()
			if !ok {
				continue
			}
			client.Add(1)
			go h.sendSnapshot(client, h.Room.Queue.Snapshot())

		case <-h.notify:
			h.broadcast()
		}
	}
}

func (h *Hub) broadcast() {
	snapshot := h.Room.Queue.Snapshot()
	hash, err := hashstructure.Hash(snapshot, hashstructure.FormatV2, nil)
	if err == nil {
		if hash == h.lastHash {
			return
		}
		h.lastHash = hash
	}
	h.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		client.Add(1)
		clients = append(clients, client)
	}
	h.RUnlock()
	for _, client := range clients {
		go func(c *Client) {
			defer c.Done()
			h.deliverSnapshot(c, snapshot)
		}(client)
	}
}

// sendSnapshot delivers one snapshot to one client. The caller must have
// incremented the client's WaitGroup from the hub loop, never from a detached
// goroutine that could race an unregister's Wait.
func (h *Hub) sendSnapshot(c *Client, snapshot []types.QueueEntry) {
	defer c.Done()
	h.deliverSnapshot(c, snapshot)
}

func (h *Hub) deliverSnapshot(c *Client, snapshot []types.QueueEntry) {
	entries := c.FilterEntries(h.Room, snapshot)
	update := types.QueueUpdate{
		RoomCode: h.Room.Code,
		Entries:  entries,
		Length:   len(snapshot),
	}
	data, err := json.Marshal(update)
	if err != nil {
		globals.AppLogger.Error("could not marshal queue update", "error", err)
		return
	}
	msg, err := json.Marshal(types.WebsocketMessage{Event: types.WireMessageTypeQueue, Data: data})
	if err != nil {
		globals.AppLogger.Error("could not marshal ws message", "error", err)
		return
	}
	h.RLock()
	if _, ok := h.clients[c]; ok {
		c.Send <- msg
	}
	h.RUnlock()
}
