// Package session keeps one game engine per player session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/game/scheduler"
	"github.com/thraizz/wildwood-server-go/internal/storage"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrLimit is returned when the manager is full.
	ErrLimit = errors.New("session limit reached")
)

// Factory builds the engine for a session id.
type Factory func(id string) (*game.Engine, error)

// Session is a live engine plus bookkeeping.
type Session struct {
	ID         string
	Engine     *game.Engine
	CreateTime time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen is when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager manages sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *zap.Logger

	factory     Factory
	store       storage.Store
	clock       scheduler.Clock
	maxSessions int
	idleTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore lets Resume rebuild sessions from saved games.
func WithStore(store storage.Store) Option {
	return func(m *Manager) { m.store = store }
}

// WithClock overrides the clock used for idle tracking.
func WithClock(c scheduler.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLimits sets the session cap and idle timeout. Zero values disable
// the respective limit.
func WithLimits(maxSessions int, idleTimeout time.Duration) Option {
	return func(m *Manager) {
		m.maxSessions = maxSessions
		m.idleTimeout = idleTimeout
	}
}

// NewManager creates a new session manager
func NewManager(factory Factory, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
		factory:  factory,
		clock:    scheduler.RealClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with a fresh engine.
func (m *Manager) Create() (*Session, error) {
	return m.add(uuid.NewString())
}

func (m *Manager) add(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrLimit
	}
	engine, err := m.factory(id)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	now := m.clock.Now()
	s := &Session{ID: id, Engine: engine, CreateTime: now, lastSeen: now}
	m.sessions[id] = s

	m.logger.Info("session created",
		zap.String("session_id", id),
		zap.Int("sessions", len(m.sessions)),
	)
	return s, nil
}

// Get retrieves a live session by ID and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.clock.Now())
	}
	return s, ok
}

// Resume returns the live session or rebuilds it from its save slot.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.Get(id); ok {
		return s, nil
	}
	if m.store == nil {
		return nil, ErrNotFound
	}
	if err := storage.ValidateSlot(id); err != nil {
		return nil, ErrNotFound
	}
	data, err := m.store.Load(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	s, err := m.add(id)
	if err != nil {
		return nil, err
	}
	rep, err := s.Engine.Load(ctx, data)
	if err != nil {
		m.Remove(id)
		return nil, err
	}
	m.logger.Info("session resumed",
		zap.String("session_id", id),
		zap.Bool("repaired", rep.Repaired()),
	)
	return s, nil
}

// Remove removes a session
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)

	m.logger.Info("session removed", zap.String("session_id", id))
}

// All returns every live session, oldest first.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreateTime.Equal(sessions[j].CreateTime) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreateTime.Before(sessions[j].CreateTime)
	})
	return sessions
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout. Their games
// remain in storage and can be resumed.
func (m *Manager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("idle sessions removed",
			zap.Int("removed", removed),
			zap.Int("sessions", len(m.sessions)),
		)
	}
	return removed
}

// CleanupIdleSessions sweeps on every tick until ctx is done.
func (m *Manager) CleanupIdleSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll drops every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.logger.Info("all sessions closed", zap.Int("sessions", n))
}
