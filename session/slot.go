package session

import (
	"fmt"
	"sync"
)

// Slot admits at most one active session per role endpoint. Sessions sharing
// a Slot cannot hold connections at the same time.
type Slot struct {
	mu    sync.Mutex
	owner string
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Acquire claims the slot for id. Re-acquiring by the current owner succeeds.
func (s *Slot) Acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner != "" && s.owner != id {
		return fmt.Errorf("%w: slot held by session %s", ErrBusy, s.owner)
	}
	s.owner = id
	return nil
}

// Release vacates the slot if id holds it.
func (s *Slot) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == id {
		s.owner = ""
	}
}

// Owner returns the holder's id, or "" when free.
func (s *Slot) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}
