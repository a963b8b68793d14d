package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/controller"
)

const (
	// DefaultSweepInterval is how often Run evicts idle workspaces.
	DefaultSweepInterval = time.Minute
	// DefaultMaxEntries bounds the number of live workspaces.
	DefaultMaxEntries = 10000
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) *controller.Controller

// Store keeps one controller per session id in memory. Nothing survives a restart.
type Store struct {
	factory Factory
	idle    time.Duration
	max     int
	now     func() time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// StoreConfig tunes a Store.
type StoreConfig struct {
	IdleTimeout time.Duration
	// MaxEntries caps live workspaces; the least recently seen one is
	// evicted to make room.
	MaxEntries  int
	Now         func() time.Time
	Logger      *zap.Logger
}

// NewStore constructs an empty store.
func NewStore(factory Factory, cfg StoreConfig) *Store {
	if factory == nil {
		panic("session: controller factory is required")
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Store{
		factory: factory,
		idle:    cfg.IdleTimeout,
		max:     cfg.MaxEntries,
		now:     cfg.Now,
		logger:  cfg.Logger,
		entries: make(map[string]*entry),
	}
}

// Controller returns the controller for id, creating it on first use.
func (s *Store) Controller(id string) *controller.Controller {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		if len(s.entries) >= s.max {
			s.evictOldestLocked()
		}
		e = &entry{ctrl: s.factory(id)}
		s.entries[id] = e
	}
	e.lastSeen = now
	return e.ctrl
}

func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range s.entries {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if oldestID == "" {
		return
	}
	delete(s.entries, oldestID)
	s.logger.Debug("evicted least recent session", zap.Int("cap", s.max))
}

// Remove drops the workspace for id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len reports the number of live workspaces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts workspaces idle for longer than the idle timeout.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) <= s.idle {
			continue
		}
		delete(s.entries, id)
		removed++
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("evicted idle sessions", zap.Int("count", n), zap.Int("live", s.Len()))
			}
		}
	}
}
