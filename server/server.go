package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/notify"
	"github.com/tcriess/lightspeed-queue/persistence"
	"github.com/tcriess/lightspeed-queue/room"
	"github.com/tcriess/lightspeed-queue/roster"
	"github.com/tcriess/lightspeed-queue/types"
	"github.com/tcriess/lightspeed-queue/ws"
)

// Server wires the queue core to its HTTP surface. All queue operations are
// deliberately unauthenticated, only room creation checks a credential.
type Server struct {
	cfg        *config.Config
	directory  *room.Directory
	roster     *roster.Registry
	dispatcher *notify.Dispatcher
	sender     notify.Sender
	persister  persistence.Persister
	devMode    bool

	hubs     map[string]*ws.Hub
	hubsLock sync.RWMutex

	upgrader websocket.Upgrader
}

func New(cfg *config.Config, directory *room.Directory, taRegistry *roster.Registry, dispatcher *notify.Dispatcher, sender notify.Sender, persister persistence.Persister, devMode bool) *Server {
	return &Server{
		cfg:        cfg,
		directory:  directory,
		roster:     taRegistry,
		dispatcher: dispatcher,
		sender:     sender,
		persister:  persister,
		devMode:    devMode,
		hubs:       make(map[string]*ws.Hub),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/api/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)

	router.HandleFunc("/api/rooms/{code}/queue", s.handleAdmit).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{code}/queue", s.handleGetQueue).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{code}/queue/next", s.handleNext).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{code}/queue/serve", s.handleServe).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{code}/queue/{entrantId}", s.handleRemove).Methods(http.MethodDelete)

	router.HandleFunc("/api/tas", s.handleAddTA).Methods(http.MethodPost)
	router.HandleFunc("/api/tas", s.handleListTAs).Methods(http.MethodGet)
	router.HandleFunc("/api/tas/{id}", s.handleRemoveTA).Methods(http.MethodDelete)

	router.HandleFunc("/api/test-notify", s.handleTestNotify).Methods(http.MethodPost)

	router.HandleFunc("/rooms/{code}/watch", s.handleWatch).Methods(http.MethodGet)

	if s.devMode {
		router.HandleFunc("/api/clear", s.handleClear).Methods(http.MethodPost)
	}
	return router
}

// hub returns the watch hub of a room, starting it on first use.
func (s *Server) hub(r *room.Room) *ws.Hub {
	s.hubsLock.RLock()
	if h, ok := s.hubs[r.Code]; ok {
		s.hubsLock.RUnlock()
		return h
	}
	s.hubsLock.RUnlock()
	s.hubsLock.Lock()
	defer s.hubsLock.Unlock()
	if h, ok := s.hubs[r.Code]; ok {
		return h
	}
	h := ws.NewHub(r)
	s.hubs[r.Code] = h
	go h.Run()
	return h
}

// Watchers returns the number of watch clients currently attached to a
// room's hub, 0 if the hub was never started.
func (s *Server) Watchers(roomCode string) int {
	s.hubsLock.RLock()
	defer s.hubsLock.RUnlock()
	if h, ok := s.hubs[roomCode]; ok {
		return h.NoClients()
	}
	return 0
}

// queueChanged persists the room's queue and wakes its watch hub. Called
// after every committed mutation; both effects are best-effort observers of
// an already-committed change.
func (s *Server) queueChanged(r *room.Room) {
	if s.persister != nil {
		snapshot := r.Queue.Snapshot()
		entrants := make([]*types.Entrant, 0, len(snapshot))
		for _, entry := range snapshot {
			entrants = append(entrants, entry.Entrant)
		}
		if err := s.persister.StoreQueue(r.Code, entrants); err != nil {
			globals.AppLogger.Error("could not persist queue", "room", r.Code, "error", err)
		}
	}
	s.hub(r).QueueChanged()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		globals.AppLogger.Error("could not write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: message})
}
