package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/types"
)

const sendChannelSize = 1000

// Client is a middleman between the websocket connection and the hub. Watch
// clients are read-mostly: the only inbound message sets the entry filter.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	doneChan chan struct{}

	// WaitGroup which keeps track of running read/write loops and write access to Send. If the WaitGroup is done,
	// it is safe to close all channels (all loops are done and there are no more write operations on the channels)
	sync.WaitGroup

	filterLock sync.RWMutex
	filterProg *filterProgram
}

func NewClient(hub *Hub, conn *websocket.Conn, doneChan chan struct{}) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		Send:     make(chan []byte, sendChannelSize),
		doneChan: doneChan,
	}
}

// sendWire marshals a payload into a wire frame and queues it for this
// client. Only called from the read loop, which is accounted for in the
// WaitGroup, so Send cannot be closed underneath it.
func (c *Client) sendWire(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		globals.AppLogger.Error("could not marshal wire payload", "error", err)
		return
	}
	msg, err := json.Marshal(types.WebsocketMessage{Event: event, Data: data})
	if err != nil {
		globals.AppLogger.Error("could not marshal ws message", "error", err)
		return
	}
	c.Send <- msg
}

// ReadLoop pumps messages from the websocket connection to the hub.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.conn.Close()
		close(c.doneChan)
		c.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				globals.AppLogger.Debug("ws closed unexpected", "error", err)
			}
			return
		}

		message := &types.WebsocketMessage{}
		err = json.Unmarshal(raw, message)
		if err != nil {
			globals.AppLogger.Debug("could not unmarshal ws message", "error", err)
			c.sendWire(types.WireMessageTypeError, types.ErrorResponse{Error: "invalid message"})
			continue
		}

		switch message.Event {
		case "watch":
			watchMsg := types.WatchMessage{}
			if err := json.Unmarshal(message.Data, &watchMsg); err != nil {
				globals.AppLogger.Debug("could not unmarshal watch message", "error", err)
				continue
			}
			if err := c.SetFilter(watchMsg.Filter); err != nil {
				globals.AppLogger.Debug("could not compile watch filter", "error", err)
				c.sendWire(types.WireMessageTypeError, types.ErrorResponse{Error: "invalid filter expression"})
				continue
			}
			c.sendWire(types.WireMessageTypeInfo, types.MessageResponse{Message: "filter updated"})
			// ask the hub to re-send the snapshot through the new filter
			select {
			case c.hub.Refresh <- c:
			default:
			}
		}
	}
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.Done()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.doneChan:
			return
		}
	}
}
