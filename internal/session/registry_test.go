package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"alertcache/internal/alertstore"
	"alertcache/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testRegistry(ttl time.Duration, opts ...Option) (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, WithClock(clock.Now))
	return NewRegistry(ttl, logger, opts...), clock
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r, _ := testRegistry(time.Minute)

	id, store := r.Create()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("Create() id %q is not a uuid: %v", id, err)
	}

	got, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != store {
		t.Error("Get returned a different store")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r, _ := testRegistry(time.Minute)

	a, err := r.GetOrCreate("s1")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	b, _ := r.GetOrCreate("s1")
	if a != b {
		t.Error("GetOrCreate returned different stores for the same id")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_Close(t *testing.T) {
	var sizes []int
	r, _ := testRegistry(time.Minute, WithSizeHook(func(n int) { sizes = append(sizes, n) }))

	store, _ := r.GetOrCreate("s1")
	if err := r.Close("s1"); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !store.Closed() {
		t.Error("store should be disposed after session close")
	}
	if err := store.Dispatch(alertstore.TotalsRefreshed{}); !errors.Is(err, alertstore.ErrStoreClosed) {
		t.Errorf("Dispatch error = %v, want %v", err, alertstore.ErrStoreClosed)
	}
	if err := r.Close("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Close error = %v, want %v", err, ErrSessionNotFound)
	}
	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 0 {
		t.Errorf("size hook calls = %v, want [1 0]", sizes)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	r, clock := testRegistry(time.Minute)

	r.GetOrCreate("idle")
	clock.Advance(30 * time.Second)
	r.GetOrCreate("active")
	clock.Advance(45 * time.Second)

	// Reading keeps a session alive.
	if _, err := r.Get("active"); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	expired := r.Sweep(clock.Now())
	if len(expired) != 1 || expired[0] != "idle" {
		t.Errorf("Sweep() = %v, want [idle]", expired)
	}
	if _, err := r.Get("idle"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(idle) error = %v, want %v", err, ErrSessionNotFound)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r, clock := testRegistry(0)

	r.GetOrCreate("s1")
	clock.Advance(24 * time.Hour)

	if expired := r.Sweep(clock.Now()); len(expired) != 0 {
		t.Errorf("Sweep() = %v, want none", expired)
	}
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r, _ := testRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r, _ := testRegistry(time.Minute)

	a, _ := r.GetOrCreate("a")
	b, _ := r.GetOrCreate("b")
	r.CloseAll()

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if !a.Closed() || !b.Closed() {
		t.Error("all stores should be disposed")
	}
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r, _ := testRegistry(time.Minute)

	a, _ := r.GetOrCreate("a")
	b, _ := r.GetOrCreate("b")
	_ = a.Dispatch(alertstore.ListRefreshed{Items: []domain.Alert{{ID: "1", Status: domain.AlertStatusOpen}}})

	if b.State().Len() != 0 {
		t.Errorf("session b Len() = %d, want 0", b.State().Len())
	}
}

func TestRegistry_ClosedSessionIsNotReopened(t *testing.T) {
	r, clock := testRegistry(time.Minute)

	id, _ := r.Create()
	if err := r.Close(id); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if _, err := r.GetOrCreate(id); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("GetOrCreate after close error = %v, want %v", err, ErrSessionClosed)
	}
	if _, err := r.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after close error = %v, want %v", err, ErrSessionNotFound)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}

	// Expired sessions are remembered too.
	r.GetOrCreate("idle")
	clock.Advance(2 * time.Minute)
	r.Sweep(clock.Now())
	if _, err := r.GetOrCreate("idle"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("GetOrCreate after expiry error = %v, want %v", err, ErrSessionClosed)
	}

	// Past the retention window the id may be used again.
	clock.Advance(closedRetention + time.Minute)
	r.Sweep(clock.Now())
	if _, err := r.GetOrCreate(id); err != nil {
		t.Errorf("GetOrCreate after retention error = %v, want nil", err)
	}
}
