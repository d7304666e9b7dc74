package navigation

import (
	"errors"
	"sort"
	"sync"

	"github.com/banshee-data/deadreckon/internal/estimator"
	"github.com/banshee-data/deadreckon/internal/monitoring"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("navigation: session not found")

// Manager is a registry of independent sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	estCfg estimator.Config
	navCfg Config
}

// NewManager returns an empty registry creating sessions with the given
// configuration.
func NewManager(estCfg estimator.Config, navCfg Config) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		estCfg:   estCfg,
		navCfg:   navCfg,
	}
}

// Create registers a new idle session.
func (m *Manager) Create() *Session {
	s := NewSession(m.estCfg, m.navCfg)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	monitoring.Debugf("session %s created", s.ID)
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session with id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	monitoring.Debugf("session %s deleted", id)
	return nil
}

// List returns all sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
