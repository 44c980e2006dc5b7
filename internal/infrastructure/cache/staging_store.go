package cache

import (
	"context"
	"sync"
	"time"

	"github.com/skol/backend/internal/domain/dispatch"
)

// stagedLine pairs a staged validation with its expiry
type stagedLine struct {
	staging   dispatch.LineStaging
	expiresAt time.Time
}

// InMemoryStagingStore holds the dispatch screen's ephemeral line validations.
// Entries expire after the configured TTL so an abandoned session does not
// pin stale lot picks forever.
type InMemoryStagingStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[dispatch.StagingKey]stagedLine
	stop    chan struct{}
	done    chan struct{}
}

// NewInMemoryStagingStore creates a staging store with the given TTL and
// starts a background sweeper that evicts expired entries
func NewInMemoryStagingStore(ttl time.Duration) *InMemoryStagingStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	s := &InMemoryStagingStore{
		ttl:     ttl,
		entries: make(map[dispatch.StagingKey]stagedLine),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// sweep periodically removes expired entries. Reads already ignore expired
// entries; the sweeper only bounds memory for abandoned sessions.
func (s *InMemoryStagingStore) sweep() {
	defer close(s.done)

	interval := s.ttl / 4
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the background sweeper
func (s *InMemoryStagingStore) Close() error {
	close(s.stop)
	<-s.done
	return nil
}

// Get returns the staging for a key, zero-value pending staging if absent
func (s *InMemoryStagingStore) Get(_ context.Context, key dispatch.StagingKey) (dispatch.LineStaging, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return dispatch.LineStaging{Key: key, Outcome: dispatch.ValidationPending}, nil
	}
	return e.staging, nil
}

// Put stores or replaces the staging for a line
func (s *InMemoryStagingStore) Put(_ context.Context, staging dispatch.LineStaging) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[staging.Key] = stagedLine{
		staging:   staging,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Remove clears the staging for a line
func (s *InMemoryStagingStore) Remove(_ context.Context, key dispatch.StagingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// List returns all staged lines that have not expired
func (s *InMemoryStagingStore) List(_ context.Context) ([]dispatch.LineStaging, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	staged := make([]dispatch.LineStaging, 0, len(s.entries))
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			staged = append(staged, e.staging)
		}
	}
	return staged, nil
}

var _ dispatch.StagingStore = (*InMemoryStagingStore)(nil)
