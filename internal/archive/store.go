package archive

import (
	"sync/atomic"
	"time"
)

// Store provides atomic access to the currently loaded archive. The API
// server reads it on every request; readiness reports unready until the
// first Set.
type Store struct {
	current atomic.Pointer[loaded]
}

type loaded struct {
	archive  *Archive
	loadedAt time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current archive, or nil if none has been loaded.
func (s *Store) Get() *Archive {
	if l := s.current.Load(); l != nil {
		return l.archive
	}
	return nil
}

// Set atomically replaces the current archive.
func (s *Store) Set(a *Archive) {
	s.current.Store(&loaded{archive: a, loadedAt: time.Now()})
}

// Ready reports whether an archive has been loaded.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

// AgeSeconds returns the age of the current archive in seconds, or -1
// if none is loaded.
func (s *Store) AgeSeconds() float64 {
	l := s.current.Load()
	if l == nil {
		return -1
	}
	return time.Since(l.loadedAt).Seconds()
}
