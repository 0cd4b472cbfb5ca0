package chat

import (
	"sort"
	"sync"
	"time"

	domain "github.com/7498valo/chat-v2/domain/chat"
	"github.com/google/uuid"
)

// IdentityDirectory resolves identity ids to public profiles.
type IdentityDirectory interface {
	Lookup(id string) (domain.Identity, bool)
}

// Registry holds every identity created since startup. Disconnected
// identities stay in the registry flagged offline so their messages remain
// attributable.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]*domain.Identity
	now        func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[string]*domain.Identity),
		now:        time.Now,
	}
}

// Register creates an online identity with a fresh id.
func (r *Registry) Register(name, avatar string) (domain.Identity, error) {
	name, err := ValidateName(name)
	if err != nil {
		return domain.Identity{}, err
	}
	avatar, err = ValidateAvatar(avatar)
	if err != nil {
		return domain.Identity{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := &domain.Identity{
		ID:       uuid.New().String(),
		Name:     name,
		Avatar:   avatar,
		Online:   true,
		JoinedAt: r.now(),
	}
	r.identities[id.ID] = id
	return *id, nil
}

// Lookup returns an identity by id.
func (r *Registry) Lookup(id string) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[id]
	if !ok {
		return domain.Identity{}, false
	}
	return *identity, true
}

// Unregister marks an identity offline. The boolean is true only for the
// call that performed the transition, so repeated calls are no-ops.
func (r *Registry) Unregister(id string) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok {
		return domain.Identity{}, false
	}
	if !identity.Online {
		return *identity, false
	}
	identity.Online = false
	identity.LeftAt = r.now()
	return *identity, true
}

// ListOthers returns every online identity except excludingID, oldest first.
func (r *Registry) ListOthers(excludingID string) []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Identity, 0, len(r.identities))
	for _, identity := range r.identities {
		if identity.Online && identity.ID != excludingID {
			result = append(result, *identity)
		}
	}
	sortByJoin(result)
	return result
}

// ListOnline returns every online identity, oldest first.
func (r *Registry) ListOnline() []domain.Identity {
	return r.ListOthers("")
}

// OnlineCount returns the number of online identities.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, identity := range r.identities {
		if identity.Online {
			n++
		}
	}
	return n
}

// Len returns the number of identities ever registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

func sortByJoin(ids []domain.Identity) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].JoinedAt.Equal(ids[j].JoinedAt) {
			return ids[i].ID < ids[j].ID
		}
		return ids[i].JoinedAt.Before(ids[j].JoinedAt)
	})
}
