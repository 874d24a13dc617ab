package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ledgerview/internal/cache"
	"ledgerview/internal/log"
)

// Factory builds the store for a new session id.
type Factory func(id string) *Store

// Registry holds live stores by session id. Stores idle past the ttl, or
// pushed out by the size limit, are disconnected.
type Registry struct {
	stores  *cache.LRUCache[*Store]
	factory Factory
	logger  *log.Logger
}

func NewRegistry(maxSessions int, ttl time.Duration, factory Factory, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Registry{
		stores:  cache.NewLRUCache[*Store](maxSessions, ttl),
		factory: factory,
		logger:  logger.WithComponent(log.ComponentSession),
	}
	r.stores.OnEvict(r.evicted)
	return r
}

// Open returns the store for id, creating it when id is unknown or expired.
// Ids that are not UUIDs are replaced by a fresh one, so callers cannot pick
// their own keys. The returned id is the one the caller must use from now on.
func (r *Registry) Open(id string) (string, *Store, bool) {
	if parsed, err := uuid.Parse(id); err == nil {
		id = parsed.String()
	} else {
		id = uuid.NewString()
	}
	s, created := r.stores.GetOrCreate(id, func() *Store { return r.factory(id) })
	if created {
		r.logger.Debug("Session opened", log.FieldSessionID, id)
	}
	return id, s, created
}

// Lookup returns the live store for id without creating one.
func (r *Registry) Lookup(id string) (*Store, bool) {
	if id == "" {
		return nil, false
	}
	return r.stores.Get(id)
}

// Close disconnects and forgets the session.
func (r *Registry) Close(id string) {
	r.stores.Delete(id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int { return r.stores.Size() }

// Cleaner exposes the backing cache to a cache.Manager sweep.
func (r *Registry) Cleaner() cache.Cleaner { return r.stores }

// Shutdown disconnects every live session.
func (r *Registry) Shutdown() {
	r.stores.Clear()
}

func (r *Registry) evicted(id string, s *Store) {
	r.logger.Debug("Session closed", log.FieldSessionID, id)
	s.Disconnect(context.Background())
}
