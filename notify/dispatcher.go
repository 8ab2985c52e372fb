package notify

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/types"
)

const notifiedCacheSize = 1024

// Dispatcher decides when an entrant who just became front-of-line gets a
// "you are next" message. It has exactly two trigger points, each behind its
// own configuration switch because both variants of the product exist:
// promotion after a serve, and promotion after an out-of-order removal of the
// previous front. The served entrant themself is never notified, serving is
// confirmed synchronously to the caller.
//
// Sends are fire-and-forget: the triggering mutation has already committed
// when the dispatcher runs, so a failed or slow delivery is logged and
// dropped, never rolled back or surfaced.
type Dispatcher struct {
	sender   Sender
	onServe  bool
	onRemove bool
	// remembers entrants already notified for their current stint at the
	// front, so enabling both hooks cannot double-message anyone
	notified *lru.Cache
}

func NewDispatcher(sender Sender, cfg config.NotifierConfig) *Dispatcher {
	cache, err := lru.New(notifiedCacheSize)
	if err != nil {
		panic("notify: could not create dedup cache: " + err.Error())
	}
	return &Dispatcher{
		sender:   sender,
		onServe:  cfg.NotifyOnServe,
		onRemove: cfg.NotifyOnRemove,
		notified: cache,
	}
}

// AfterServe is invoked after a successful PopFront with the entry that is
// now at the front, if any.
func (d *Dispatcher) AfterServe(roomCode string, newFront *types.Entrant) {
	if !d.onServe {
		return
	}
	d.dispatch(roomCode, newFront, "It's your turn! %s, please come to the office hours desk.")
}

// AfterFrontRemoved is invoked after a successful Remove that evicted the
// previous front, with the entry newly at the front, if any.
func (d *Dispatcher) AfterFrontRemoved(roomCode string, newFront *types.Entrant) {
	if !d.onRemove {
		return
	}
	d.dispatch(roomCode, newFront, "You're next in line! %s, please be ready.")
}

func (d *Dispatcher) dispatch(roomCode string, entrant *types.Entrant, format string) {
	if entrant == nil || !entrant.NotifyConsent {
		return
	}
	if entrant.RawContact == "" {
		globals.AppLogger.Warn("cannot notify entrant, no contact stored", "room", roomCode, "entrant", entrant.DisplayName)
		return
	}
	key := roomCode + "/" + entrant.Id
	if _, ok := d.notified.Get(key); ok {
		return
	}
	d.notified.Add(key, struct{}{})
	body := fmt.Sprintf(format, entrant.DisplayName)
	go func() {
		if err := d.sender.Send(entrant.RawContact, body); err != nil {
			globals.AppLogger.Error("could not send notification", "room", roomCode, "entrant", entrant.DisplayName, "error", err)
			return
		}
		globals.AppLogger.Info("notification sent", "room", roomCode, "entrant", entrant.DisplayName)
	}()
}
