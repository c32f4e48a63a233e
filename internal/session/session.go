// Package session holds per-owner interaction modes that used to live in
// process-wide mutable state.
package session

import "sync"

// Mode is what the bot currently does with incoming photos from a user.
type Mode int

const (
	// ModeCollect is the default: photos become collect entries.
	ModeCollect Mode = iota
	// ModeAddingStock routes photos into the fallback stock instead.
	ModeAddingStock
)

// Store maps user id to interaction mode. Zero value of a missing user is
// ModeCollect.
type Store struct {
	mu    sync.RWMutex
	modes map[int64]Mode
}

func NewStore() *Store {
	return &Store{modes: make(map[int64]Mode)}
}

func (s *Store) Get(userID int64) Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modes[userID]
}

func (s *Store) Set(userID int64, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == ModeCollect {
		delete(s.modes, userID)
		return
	}
	s.modes[userID] = mode
}

// Reset returns the user to the default mode.
func (s *Store) Reset(userID int64) {
	s.Set(userID, ModeCollect)
}
