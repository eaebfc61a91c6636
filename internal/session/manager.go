package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/config"
)

// Manager owns every live session and serializes requests within each one.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	cfg      *config.Config
	log      *zap.Logger
}

type entry struct {
	mu       sync.Mutex
	sess     *Session
	lastSeen time.Time
}

// NewManager creates a Manager that initializes sessions from cfg and drops
// them after cfg.SessionTTL of inactivity.
func NewManager(cfg *config.Config, log *zap.Logger) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		ttl:      cfg.SessionTTL(),
		now:      time.Now,
		cfg:      cfg,
		log:      log,
	}
}

// Acquire returns the session for id, creating a fresh one (with a new ID)
// when id is empty, unknown or expired. The session is initialized and
// exclusively held until release is called.
func (m *Manager) Acquire(id string) (sess *Session, release func()) {
	m.mu.Lock()
	now := m.now()
	m.sweep(now)

	e, ok := m.sessions[id]
	if !ok {
		id = uuid.New().String()
		e = &entry{sess: New(id)}
		m.sessions[id] = e
		m.log.Debug("session created", zap.String("session", id))
	}
	e.lastSeen = now
	m.mu.Unlock()

	e.mu.Lock()
	Initialize(e.sess, m.cfg, m.log)
	return e.sess, e.mu.Unlock
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweep drops sessions idle for longer than the TTL. Caller holds m.mu.
func (m *Manager) sweep(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			m.log.Debug("session expired", zap.String("session", id))
		}
	}
}
