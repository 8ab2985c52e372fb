package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/tcriess/lightspeed-queue/auth"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.Authorize(bearerToken(r), r.URL.Query().Get("provider"), s.cfg)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	req := types.CreateRoomRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "room name is required")
		return
	}
	newRoom := s.directory.CreateRoom(strings.TrimSpace(req.Name), principal, req.Code)
	if s.persister != nil {
		if err := s.persister.StoreRoom(newRoom.Room); err != nil {
			globals.AppLogger.Error("could not persist room", "room", newRoom.Code, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, newRoom.Room)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		writeError(w, http.StatusNotFound, types.ErrRoomNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, foundRoom.Room)
}

func (s *Server) handleAdmit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		writeError(w, http.StatusNotFound, types.ErrRoomNotFound.Error())
		return
	}
	req := types.AdmitRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		writeError(w, http.StatusBadRequest, "phone number is required")
		return
	}
	entrant, position, err := foundRoom.Queue.Admit(req.PhoneNumber, req.Topic, req.NotifyConsent)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateEntrant) {
			writeError(w, http.StatusConflict, types.ErrDuplicateEntrant.Error())
			return
		}
		globals.AppLogger.Error("could not admit entrant", "room", foundRoom.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "could not join queue")
		return
	}
	s.queueChanged(foundRoom)
	writeJSON(w, http.StatusOK, types.AdmitResponse{
		Entrant:     entrant,
		Position:    position,
		QueueLength: foundRoom.Queue.Len(),
	})
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		writeError(w, http.StatusNotFound, types.ErrRoomNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, foundRoom.Queue.Snapshot())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		writeError(w, http.StatusNotFound, types.ErrRoomNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, foundRoom.Queue.PeekFront())
}

func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		writeError(w, http.StatusNotFound, types.ErrRoomNotFound.Error())
		return
	}
	served, newFront := foundRoom.Queue.PopFront()
	if served == nil {
		writeError(w, http.StatusNotFound, "no entrants in queue")
		return
	}
	// the served entrant gets this synchronous confirmation; the dispatcher
	// only considers whoever this pop promoted to the front
	if newFront != nil {
		s.dispatcher.AfterServe(foundRoom.Code, newFront.Entrant)
	}
	s.queueChanged(foundRoom)
	writeJSON(w, http.StatusOK, types.ServeResponse{
		Message: "entrant served successfully",
		Entrant: served.Entrant,
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	foundRoom := s.directory.GetRoom(vars["code"])
	if foundRoom == nil {
		writeError(w, http.StatusNotFound, types.ErrRoomNotFound.Error())
		return
	}
	removed, newFront := foundRoom.Queue.Remove(vars["entrantId"])
	if removed == nil {
		writeError(w, http.StatusNotFound, types.ErrEntrantNotFound.Error())
		return
	}
	// promotion only happens when the front itself was evicted
	if removed.Position == 1 && newFront != nil {
		s.dispatcher.AfterFrontRemoved(foundRoom.Code, newFront.Entrant)
	}
	s.queueChanged(foundRoom)
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "entrant dropped from queue"})
}

func (s *Server) handleAddTA(w http.ResponseWriter, r *http.Request) {
	req := types.AddTARequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	ta := s.roster.Add(req.Name)
	if s.persister != nil {
		if err := s.persister.StoreTA(*ta); err != nil {
			globals.AppLogger.Error("could not persist ta", "ta", ta.Id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, ta)
}

func (s *Server) handleListTAs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.roster.ListActive())
}

func (s *Server) handleRemoveTA(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	if !s.roster.Remove(id) {
		writeError(w, http.StatusNotFound, types.ErrTANotFound.Error())
		return
	}
	if s.persister != nil {
		if err := s.persister.DeleteTA(types.TA{Id: id}); err != nil {
			globals.AppLogger.Error("could not delete persisted ta", "ta", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "ta removed successfully"})
}

func (s *Server) handleTestNotify(w http.ResponseWriter, r *http.Request) {
	req := types.TestNotifyRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "phone number and message are required")
		return
	}
	if !s.sender.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "delivery disabled")
		return
	}
	if err := s.sender.Send(req.PhoneNumber, req.Message); err != nil {
		globals.AppLogger.Error("test notification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not send message")
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "message sent successfully"})
}

// handleClear empties every queue and the roster. Development only.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	for _, rm := range s.directory.Rooms() {
		for {
			served, _ := rm.Queue.PopFront()
			if served == nil {
				break
			}
		}
		s.queueChanged(rm)
	}
	for _, ta := range s.roster.ListActive() {
		s.roster.Remove(ta.Id)
		if s.persister != nil {
			_ = s.persister.DeleteTA(*ta)
		}
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "all data cleared"})
}
