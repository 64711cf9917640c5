// internal/service/mapsession/manager.go

package mapsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"collabmap/internal/domain/creator"
	"collabmap/internal/domain/maplib"
)

// refreshTimeout bounds the candidate reload triggered by a creator
// change event.
const refreshTimeout = 10 * time.Second

// Manager tracks live map sessions and pushes a fresh candidate set into
// each of them when creator records change.
type Manager struct {
	store creator.Store
	cfg   Config
	log   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	sub      *nats.Subscription
}

// NewManager creates a session manager. When a NATS connection is given,
// the manager subscribes to the subject carrying creator-change events
// and refreshes every live session on each event.
func NewManager(store creator.Store, nc *nats.Conn, subject string, cfg Config, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		store:    store,
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*Session),
	}

	if nc != nil {
		sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			m.refreshAll(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		m.sub = sub
	}

	return m, nil
}

// Open starts a session for one viewer and seeds it with the full
// candidate set. A failed candidate load surfaces whole; the session is
// never left partially applied.
func (m *Manager) Open(ctx context.Context, lib maplib.Library, viewerID string, navigate NavigateFunc) (*Session, error) {
	candidates, err := m.store.ListCreators(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading creators: %w", err)
	}

	s := NewSession(lib, m.cfg, viewerID, navigate, m.log)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	s.SetCandidates(candidates)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	return s, nil
}

// Close tears down a session and stops tracking it.
func (m *Manager) Close(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()

	s.Close()
}

// refreshAll reloads the candidate set and pushes it into every live
// session. A failed reload keeps the sessions on their current set.
func (m *Manager) refreshAll(ctx context.Context) {
	candidates, err := m.store.ListCreators(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("refreshing creators after change event")
		return
	}

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.SetCandidates(candidates)
	}
}

// Shutdown unsubscribes from change events and closes all sessions.
func (m *Manager) Shutdown() {
	if m.sub != nil {
		_ = m.sub.Unsubscribe()
	}

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
