package config

import (
	"sync"
	"sync/atomic"
)

// Store is a read-through cache of the current settings snapshot.
// Snapshots are replaced wholesale, so readers observe either the old or the new value.
type Store struct {
	current atomic.Pointer[Settings]

	// writeMu orders swaps and their notifications, so listeners see snapshots in swap order.
	// Listeners must not write to the store.
	writeMu   sync.Mutex
	mu        sync.Mutex
	listeners []func(*Settings)
}

// NewStore creates a store holding initial.
func NewStore(initial *Settings) *Store {
	if initial == nil {
		initial = Defaults()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the live snapshot. Callers must treat it as read-only.
func (s *Store) Current() *Settings {
	return s.current.Load()
}

// Replace swaps in a new snapshot and notifies listeners.
func (s *Store) Replace(next *Settings) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.current.Store(next)
	s.notify(next)
}

// Update applies fn to a copy of the current snapshot and swaps the copy in.
func (s *Store) Update(fn func(*Settings)) *Settings {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := s.current.Load().Clone()
	fn(next)
	s.current.Store(next)
	s.notify(next)
	return next
}

// OnChange registers a listener invoked after every replacement.
func (s *Store) OnChange(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(next *Settings) {
	s.mu.Lock()
	listeners := append([]func(*Settings){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
}
