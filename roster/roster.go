package roster

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tcriess/lightspeed-queue/types"
)

// Registry is the membership set of active staff. It is independent of any
// room's queue, removal is deletion (there is no deactivated state).
type Registry struct {
	tas []*types.TA

	sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{tas: make([]*types.TA, 0)}
}

// Add creates a new TA and appends it. Duplicate names are allowed.
func (r *Registry) Add(name string) *types.TA {
	ta := &types.TA{
		Id:       uuid.New().String(),
		Name:     strings.TrimSpace(name),
		IsActive: true,
	}
	r.Lock()
	defer r.Unlock()
	r.tas = append(r.tas, ta)
	return ta
}

// Remove deletes the TA with the given id, reporting whether it was present.
func (r *Registry) Remove(id string) bool {
	r.Lock()
	defer r.Unlock()
	for i, ta := range r.tas {
		if ta.Id == id {
			r.tas = append(r.tas[:i], r.tas[i+1:]...)
			return true
		}
	}
	return false
}

// ListActive returns all currently-held TAs in insertion order.
func (r *Registry) ListActive() []*types.TA {
	r.RLock()
	defer r.RUnlock()
	tas := make([]*types.TA, len(r.tas))
	copy(tas, r.tas)
	return tas
}

// Restore re-seeds the registry from persisted TAs.
func (r *Registry) Restore(tas []*types.TA) {
	r.Lock()
	defer r.Unlock()
	r.tas = make([]*types.TA, 0, len(tas))
	for _, ta := range tas {
		ta.IsActive = true
		r.tas = append(r.tas, ta)
	}
}
