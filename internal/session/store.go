// Package session owns the per-call conversational state. The store is the
// only holder of live sessions; expiry is enforced lazily on access, so no
// background sweeper is required for correctness.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harborview/voicebook/internal/domain/entities"
)

// Store is the keyed state container for call sessions. Implementations
// must be safe for concurrent access across distinct call identifiers;
// turns for a single call arrive strictly in sequence from the telephony
// provider, so intra-call contention is not expected but must not corrupt
// accepted field values.
type Store interface {
	// GetOrCreate returns the live session for the call id, creating a
	// fresh one when none exists or the previous one has expired. The
	// second return reports whether a new session was created.
	GetOrCreate(ctx context.Context, callID string) (*entities.CallSession, bool, error)

	// Save persists the session and refreshes its expiry
	Save(ctx context.Context, session *entities.CallSession) error

	// Remove destroys the session, used on successful booking or cancellation
	Remove(ctx context.Context, callID string) error
}

// MemoryStore is the default in-process Store backed by a mutex-guarded map
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*entities.CallSession

	ttl                    time.Duration
	defaultDurationMinutes int
	clock                  func() time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore(ttl time.Duration, defaultDurationMinutes int) *MemoryStore {
	return &MemoryStore{
		sessions:               make(map[string]*entities.CallSession),
		ttl:                    ttl,
		defaultDurationMinutes: defaultDurationMinutes,
		clock:                  time.Now,
	}
}

// SetClock overrides the store's notion of now, for tests
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.clock = clock
}

// GetOrCreate implements Store
func (s *MemoryStore) GetOrCreate(ctx context.Context, callID string) (*entities.CallSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.sweepLocked(now)

	if sess, ok := s.sessions[callID]; ok {
		return sess, false, nil
	}

	sess := entities.NewCallSession(callID, s.defaultDurationMinutes, now)
	s.sessions[callID] = sess
	return sess, true, nil
}

// Save implements Store. It never drops an accepted field value: if a
// concurrent writer stored a field that the incoming session is missing,
// the stored value is preserved and a warning is logged (last-write-wins
// aside from that floor).
func (s *MemoryStore) Save(ctx context.Context, session *entities.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.CallID]; ok && existing != session {
		preserveAccepted(session, existing)
	}

	session.LastUpdated = s.clock()
	s.sessions[session.CallID] = session
	return nil
}

// Remove implements Store
func (s *MemoryStore) Remove(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
	return nil
}

// Len reports the number of live sessions, expired ones included until the
// next access sweeps them
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if sess.Expired(now, s.ttl) {
			delete(s.sessions, id)
		}
	}
}

// preserveAccepted copies already-accepted fields from stored into incoming
// when the incoming session would clear them
func preserveAccepted(incoming, stored *entities.CallSession) {
	merged := false
	if incoming.Collected.Name == "" && stored.Collected.Name != "" {
		incoming.Collected.Name = stored.Collected.Name
		merged = true
	}
	if incoming.Collected.Phone == "" && stored.Collected.Phone != "" {
		incoming.Collected.Phone = stored.Collected.Phone
		merged = true
	}
	if incoming.Collected.StartsAt == nil && stored.Collected.StartsAt != nil {
		incoming.Collected.StartsAt = stored.Collected.StartsAt
		merged = true
	}
	if merged {
		log.Warn().
			Str("call_id", incoming.CallID).
			Msg("concurrent session write detected, preserved accepted fields")
	}
}
