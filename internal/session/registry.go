// Package session keeps one alert store per client session.
// Stores are created on demand, looked up by session id and disposed
// explicitly or after they have been idle for longer than the TTL.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"alertcache/internal/alertstore"
)

// Errors returned by the registry.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session was closed")
)

// closedRetention is how long a closed session id is remembered, so late
// events for it are refused instead of reopening the session.
const closedRetention = 10 * time.Minute

// Registry maps session ids to their stores.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	closed   map[string]time.Time

	ttl      time.Duration
	observer alertstore.Observer
	logger   *slog.Logger
	now      func() time.Time

	// onChange is called with the session count after every create or close.
	onChange func(n int)
}

type entry struct {
	store *alertstore.Store

	mu       sync.Mutex
	lastUsed time.Time
}

func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastUsed = now
	e.mu.Unlock()
}

func (e *entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver attaches an observer to every store the registry creates.
func WithObserver(o alertstore.Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithSizeHook registers a callback that receives the session count after it changes.
func WithSizeHook(fn func(n int)) Option {
	return func(r *Registry) { r.onChange = fn }
}

// NewRegistry creates an empty registry. A ttl of zero disables expiry.
func NewRegistry(ttl time.Duration, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		closed:   make(map[string]time.Time),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *alertstore.Store) {
	id := uuid.New().String()
	store, _ := r.getOrCreate(id)
	return id, store
}

// Get returns the store for id and marks the session as used.
func (r *Registry) Get(id string) (*alertstore.Store, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(r.now())
	return e.store, nil
}

// GetOrCreate returns the store for id, creating it if needed.
// A session closed recently is not reopened: it returns ErrSessionClosed.
func (r *Registry) GetOrCreate(id string) (*alertstore.Store, error) {
	if store, err := r.Get(id); err == nil {
		return store, nil
	}
	return r.getOrCreate(id)
}

func (r *Registry) getOrCreate(id string) (*alertstore.Store, error) {
	r.mu.Lock()
	if _, gone := r.closed[id]; gone {
		r.mu.Unlock()
		return nil, ErrSessionClosed
	}
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{store: alertstore.NewStore(r.observer)}
		r.sessions[id] = e
	}
	n := len(r.sessions)
	r.mu.Unlock()

	e.touch(r.now())
	if !ok {
		r.logger.Debug("session created", "session_id", id)
		r.notify(n)
	}
	return e.store, nil
}

// Close disposes the store of a session and forgets it.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.closed[id] = r.now()
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if err := e.store.Close(); err != nil {
		return err
	}
	r.logger.Debug("session closed", "session_id", id)
	r.notify(n)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes every session idle since before now minus the TTL and
// forgets closed ids older than the retention window.
// It returns the ids it closed.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.Lock()
	for id, at := range r.closed {
		if now.Sub(at) > closedRetention {
			delete(r.closed, id)
		}
	}
	if r.ttl <= 0 {
		r.mu.Unlock()
		return nil
	}
	cutoff := now.Add(-r.ttl)

	var expired []*entry
	var ids []string

	for id, e := range r.sessions {
		if e.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			r.closed[id] = now
			expired = append(expired, e)
			ids = append(ids, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, e := range expired {
		_ = e.store.Close()
	}
	if len(ids) > 0 {
		r.logger.Info("expired idle sessions", "count", len(ids), "remaining", n)
		r.notify(n)
	}
	return ids
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// CloseAll disposes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	now := r.now()
	for id := range sessions {
		r.closed[id] = now
	}
	r.mu.Unlock()

	for _, e := range sessions {
		_ = e.store.Close()
	}
	r.notify(0)
}

func (r *Registry) notify(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}
