package alertstore

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStoreClosed is returned when dispatching to a disposed store.
var ErrStoreClosed = errors.New("alert store is closed")

// Observer is notified after every applied event.
type Observer func(kind Kind, before, after State, took time.Duration)

// Store owns the current State of one session.
// Dispatch calls are serialized; State may be read concurrently without locking.
type Store struct {
	mu       sync.Mutex
	current  atomic.Pointer[State]
	closed   bool
	observer Observer
}

// NewStore creates a store holding the initial state.
// observer may be nil.
func NewStore(observer Observer) *Store {
	s := &Store{observer: observer}
	initial := NewState()
	s.current.Store(&initial)
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	return *s.current.Load()
}

// Dispatch applies event to the current state and publishes the result.
func (s *Store) Dispatch(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if event == nil {
		return nil
	}

	start := time.Now()
	before := *s.current.Load()
	after := Apply(before, event)
	s.current.Store(&after)

	if s.observer != nil {
		s.observer(event.Kind(), before, after, time.Since(start))
	}
	return nil
}

// Reset puts the store back into the initial state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	initial := NewState()
	s.current.Store(&initial)
	return nil
}

// Close disposes the store. Further dispatches fail; the last state stays readable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
