package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/booking"
	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/outbox"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// ErrNotConfigured is returned for practitioners who never set up a
// weekly template.
var ErrNotConfigured = errors.New("practitioner has no availability configured")

// Store persists a practitioner's calendar plus any events atomically.
type Store interface {
	Load(ctx context.Context, practitionerID string) (*horizon.Calendar, bool, error)
	Save(ctx context.Context, practitionerID string, cal *horizon.Calendar, events []outbox.Event) error
}

// Engine serializes all availability state per practitioner. Mutations
// take a per-practitioner exclusive lock, work on a clone, persist, and
// only then swap the clone in; readers under the shared lock therefore
// always see the last fully committed state and never a partial edit.
// There is no shared mutable state across practitioners.
type Engine struct {
	store              Store
	provider           booking.Provider
	logger             *slog.Logger
	now                func() time.Time
	defaultSlotMinutes int

	mu     sync.Mutex
	states map[string]*state
}

type state struct {
	mu     sync.RWMutex
	loaded bool
	cal    *horizon.Calendar
}

type Options struct {
	// Provider may be nil; then only local occupancy guards rematerialization.
	Provider booking.Provider
	// Now is the clock used for past-date rules; defaults to time.Now.
	Now                func() time.Time
	DefaultSlotMinutes int
}

func New(store Store, logger *slog.Logger, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultSlotMinutes <= 0 {
		opts.DefaultSlotMinutes = 30
	}
	return &Engine{
		store:              store,
		provider:           opts.Provider,
		logger:             logger,
		now:                opts.Now,
		defaultSlotMinutes: opts.DefaultSlotMinutes,
		states:             map[string]*state{},
	}
}

func (e *Engine) state(practitionerID string) *state {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[practitionerID]
	if !ok {
		st = &state{}
		e.states[practitionerID] = st
	}
	return st
}

func (e *Engine) ensureLoaded(ctx context.Context, practitionerID string, st *state) error {
	if st.loaded {
		return nil
	}
	cal, ok, err := e.store.Load(ctx, practitionerID)
	if err != nil {
		return err
	}
	if ok {
		st.cal = cal
	}
	st.loaded = true
	return nil
}

// mutate runs fn against a clone of the current calendar and commits
// the clone only after the store accepted it. create controls whether a
// missing calendar is initialized with a fresh template first.
func (e *Engine) mutate(ctx context.Context, practitionerID string, create bool, fn func(cal *horizon.Calendar, today horizon.Date, at time.Time) ([]outbox.Event, error)) error {
	st := e.state(practitionerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := e.ensureLoaded(ctx, practitionerID, st); err != nil {
		return err
	}

	base := st.cal
	if base == nil {
		if !create {
			return ErrNotConfigured
		}
		tpl, err := schedule.NewWeeklyTemplate(e.defaultSlotMinutes)
		if err != nil {
			return err
		}
		base = horizon.NewCalendar(tpl)
	}

	next := base.Clone()
	at := e.now().UTC()
	events, err := fn(next, horizon.DateOf(at), at)
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, practitionerID, next, events); err != nil {
		return err
	}
	st.cal = next
	return nil
}

// snapshot returns the committed calendar. Mutators never modify a
// committed calendar in place, so the returned pointer is stable for
// reading.
func (e *Engine) snapshot(ctx context.Context, practitionerID string) (*horizon.Calendar, error) {
	st := e.state(practitionerID)

	st.mu.RLock()
	if st.loaded {
		cal := st.cal
		st.mu.RUnlock()
		if cal == nil {
			return nil, ErrNotConfigured
		}
		return cal, nil
	}
	st.mu.RUnlock()

	st.mu.Lock()
	err := e.ensureLoaded(ctx, practitionerID, st)
	cal := st.cal
	st.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, ErrNotConfigured
	}
	return cal, nil
}

// Snapshot exposes the committed calendar for read projections.
func (e *Engine) Snapshot(ctx context.Context, practitionerID string) (*horizon.Calendar, error) {
	return e.snapshot(ctx, practitionerID)
}

// DaySlots returns the effective availability for one materialized date.
func (e *Engine) DaySlots(ctx context.Context, practitionerID string, date horizon.Date) (*horizon.DaySlots, error) {
	cal, err := e.snapshot(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	day, ok := cal.DayFor(date)
	if !ok {
		return nil, horizon.ErrSlotNotFound
	}
	return day, nil
}
