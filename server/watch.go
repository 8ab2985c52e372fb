package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/ws"
)

// handleWatch upgrades the connection and attaches it to the room's watch
// hub. The client receives the current snapshot immediately and a fresh one
// on every queue change. An optional "filter" query parameter (or a later
// "watch" message) installs an expr entry filter.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	hub := s.hub(foundRoom)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close() //nolint

	doneChan := make(chan struct{})
	c := ws.NewClient(hub, conn, doneChan)
	if filterSource := r.URL.Query().Get("filter"); filterSource != "" {
		if err := c.SetFilter(filterSource); err != nil {
			globals.AppLogger.Debug("could not compile watch filter", "error", err)
		}
	}

	c.Add(1)
	hub.Register <- c
	// wait for the client to actually be registered, so the initial snapshot
	// also reaches it
	c.Wait()
	defer func() {
		hub.Unregister <- c
	}()
	c.Add(2)
	go c.ReadLoop()
	go c.WriteLoop()

	<-doneChan
	globals.AppLogger.Debug("doneChan closed, exiting watch handler")
}
