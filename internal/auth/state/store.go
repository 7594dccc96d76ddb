// Package state implements one-time OAuth correlation state values.
package state

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrUnknownState means the value was never issued or was already consumed.
	ErrUnknownState = errors.New("unknown or already consumed state")
	// ErrExpiredState means the value outlived its validity window.
	ErrExpiredState = errors.New("state expired")
)

// Store issues random state values and accepts each at most once.
// Entries expire after the configured TTL; a background sweep removes
// stale entries so abandoned logins do not accumulate.
type Store struct {
	mu      sync.Mutex
	entries map[string]time.Time // value -> issuedAt
	ttl     time.Duration
	now     func() time.Time
	ticker  *time.Ticker
	done    chan struct{}
}

// NewStore creates a Store whose values expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue mints a new random state value and registers it.
func (s *Store) Issue() string {
	b := make([]byte, 16)
	rand.Read(b)
	value := hex.EncodeToString(b)

	s.mu.Lock()
	s.entries[value] = s.now()
	s.mu.Unlock()

	return value
}

// Consume validates and deletes a state value. Expiry is checked against
// the TTL even if the sweep has not run yet, so a stale value is rejected
// on first use regardless of sweep cadence.
func (s *Store) Consume(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt, ok := s.entries[value]
	if !ok {
		return ErrUnknownState
	}
	delete(s.entries, value)

	if s.now().Sub(issuedAt) > s.ttl {
		return ErrExpiredState
	}
	return nil
}

// StartSweep starts the periodic cleanup of expired entries.
func (s *Store) StartSweep(interval time.Duration) {
	s.ticker = time.NewTicker(interval)
	s.done = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.sweep()
			case <-s.done:
				return
			}
		}
	}()
	log.Printf("🧹 State sweep started (interval: %s, ttl: %s)", interval, s.ttl)
}

// Stop halts the background sweep.
func (s *Store) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.done)
	}
}

func (s *Store) sweep() {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	removed := 0
	for value, issuedAt := range s.entries {
		if issuedAt.Before(cutoff) {
			delete(s.entries, value)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		log.Printf("🧹 Swept %d expired state entries", removed)
	}
}
