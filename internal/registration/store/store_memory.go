package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studentreg/internal/registration/form"
	id "studentreg/pkg/domain"
	"studentreg/pkg/platform/sentinel"
)

type memoryEntry struct {
	state     form.State
	expiresAt time.Time
}

// InMemory is a single-process form store. Expired entries are evicted lazily
// on access and by Sweep.
type InMemory struct {
	mu    sync.Mutex
	forms map[id.FormID]memoryEntry
	ttl   time.Duration
	clock Clock
}

// MemoryOption configures an InMemory store.
type MemoryOption func(*InMemory)

// WithMemoryTTL overrides DefaultTTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *InMemory) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMemoryClock injects the time source.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory creates an empty store.
func NewInMemory(opts ...MemoryOption) *InMemory {
	s := &InMemory{
		forms: make(map[id.FormID]memoryEntry),
		ttl:   DefaultTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new form instance.
func (s *InMemory) Create(_ context.Context, st form.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.forms[st.ID]; ok && s.clock().Before(e.expiresAt) {
		return fmt.Errorf("form %s: %w", st.ID, sentinel.ErrConflict)
	}
	s.forms[st.ID] = memoryEntry{state: st, expiresAt: s.clock().Add(s.ttl)}
	return nil
}

// FindByID returns the current state of a form.
func (s *InMemory) FindByID(_ context.Context, formID id.FormID) (form.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.live(formID)
	if err != nil {
		return form.State{}, err
	}
	return e.state, nil
}

// Update applies fn to the stored state and saves the result. When fn returns
// an error nothing is saved and the error is returned with the unchanged state.
func (s *InMemory) Update(_ context.Context, formID id.FormID, fn func(form.State) (form.State, error)) (form.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.live(formID)
	if err != nil {
		return form.State{}, err
	}
	next, err := fn(e.state)
	if err != nil {
		return e.state, err
	}
	s.forms[formID] = memoryEntry{state: next, expiresAt: s.clock().Add(s.ttl)}
	return next, nil
}

// Delete removes a form instance.
func (s *InMemory) Delete(_ context.Context, formID id.FormID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.live(formID); err != nil {
		return err
	}
	delete(s.forms, formID)
	return nil
}

// Sweep evicts expired entries and returns how many were removed.
func (s *InMemory) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	removed := 0
	for k, e := range s.forms {
		if !now.Before(e.expiresAt) {
			delete(s.forms, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// live must be called with mu held.
func (s *InMemory) live(formID id.FormID) (memoryEntry, error) {
	e, ok := s.forms[formID]
	if !ok {
		return memoryEntry{}, ErrNotFound
	}
	if !s.clock().Before(e.expiresAt) {
		delete(s.forms, formID)
		return memoryEntry{}, ErrNotFound
	}
	return e, nil
}
