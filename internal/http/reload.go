package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"ledgerview/internal/log"
	"ledgerview/internal/session"
)

// reloadScheduler runs one deferred Load per session after a remote change.
// A newer schedule for the same session replaces the pending one.
type reloadScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	logger  *log.Logger
	stopped bool
}

func newReloadScheduler(logger *log.Logger) *reloadScheduler {
	return &reloadScheduler{
		timers: make(map[string]*time.Timer),
		logger: logger,
	}
}

func (rs *reloadScheduler) schedule(sessionID string, store *session.Store, delay time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.stopped {
		return
	}
	if t, ok := rs.timers[sessionID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		rs.mu.Lock()
		if rs.timers[sessionID] != timer {
			rs.mu.Unlock()
			return
		}
		delete(rs.timers, sessionID)
		rs.mu.Unlock()
		rs.run(sessionID, store)
	})
	rs.timers[sessionID] = timer
}

func (rs *reloadScheduler) run(sessionID string, store *session.Store) {
	ctx := context.Background()
	err := store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotConnected):
		rs.logger.Debug("Deferred reload skipped, session disconnected", log.FieldSessionID, sessionID)
	case err != nil:
		rs.logger.Warn("Deferred reload failed", log.FieldSessionID, sessionID, log.FieldError, err.Error())
	default:
		rs.logger.Debug("Deferred reload done", log.FieldSessionID, sessionID)
	}
}

// cancel drops the pending reload for sessionID, if any.
func (rs *reloadScheduler) cancel(sessionID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if t, ok := rs.timers[sessionID]; ok {
		t.Stop()
		delete(rs.timers, sessionID)
	}
}

func (rs *reloadScheduler) pending(sessionID string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, ok := rs.timers[sessionID]
	return ok
}

// stop cancels every pending reload and refuses new ones.
func (rs *reloadScheduler) stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.stopped = true
	for id, t := range rs.timers {
		t.Stop()
		delete(rs.timers, id)
	}
}
