// Package session is the per-browser-session state store. A Session is only
// touched by one request at a time (see Manager), so it carries no locks.
package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

// ErrUnknownKey is returned by Set for keys outside the schema.
var ErrUnknownKey = errors.New("unknown session key")

// Session maps schema keys to values.
type Session struct {
	id     string
	values map[Key]any
}

// New returns an empty, uninitialized session.
func New(id string) *Session {
	return &Session{id: id, values: make(map[Key]any)}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Get returns the value for key, or def when it is absent.
func (s *Session) Get(key Key, def any) any {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is set.
func (s *Session) Has(key Key) bool {
	_, ok := s.values[key]
	return ok
}

// Set stores value under key.
func (s *Session) Set(key Key, value any) error {
	if !known(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	s.values[key] = value
	return nil
}

// Snapshot returns a shallow copy of the current values.
func (s *Session) Snapshot() map[Key]any {
	out := make(map[Key]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Initialize sets the default for every schema key that is absent and never
// touches keys that are already set, so running it on every request is safe.
// A default that panics is logged and replaced by the key's fallback.
func Initialize(s *Session, cfg *config.Config, log *zap.Logger) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	for _, f := range schema {
		if s.Has(f.key) {
			continue
		}
		initField(s, f, cfg, log)
	}
}

func initField(s *Session, f field, cfg *config.Config, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("session default failed; using fallback",
				zap.String("key", string(f.key)),
				zap.Any("panic", r))
			s.values[f.key] = f.fallback()
		}
	}()
	s.values[f.key] = f.def(cfg)
}

// Nav returns the navigation target, falling back to home when the stored
// value is missing, of the wrong type, or names an invalid page.
func (s *Session) Nav() nav.Target {
	t, ok := s.values[KeyNav].(nav.Target)
	if !ok || !t.Page.Valid() {
		return nav.Home()
	}
	return t
}

// SetNav stores the navigation target.
func (s *Session) SetNav(t nav.Target) { s.values[KeyNav] = t }

// AddNotice queues a notice for the next render.
func (s *Session) AddNotice(n notice.Notice) {
	ns, _ := s.values[KeyNotices].([]notice.Notice)
	s.values[KeyNotices] = append(ns, n)
}

// TakeNotices returns and clears queued notices.
func (s *Session) TakeNotices() []notice.Notice {
	ns, _ := s.values[KeyNotices].([]notice.Notice)
	s.values[KeyNotices] = []notice.Notice(nil)
	return ns
}

// LastError returns the stored error record, if any.
func (s *Session) LastError() *ErrorRecord {
	rec, _ := s.values[KeyLastError].(*ErrorRecord)
	return rec
}

// SetLastError replaces the stored error record.
func (s *Session) SetLastError(rec *ErrorRecord) { s.values[KeyLastError] = rec }

// ClearLastError removes the stored error record.
func (s *Session) ClearLastError() { s.values[KeyLastError] = (*ErrorRecord)(nil) }

// Cooldowns returns the session's cooldown tracker, replacing a missing or
// mistyped value with a fresh tracker.
func (s *Session) Cooldowns() *uictx.Cooldowns {
	c, ok := s.values[KeyCooldowns].(*uictx.Cooldowns)
	if !ok || c == nil {
		c = uictx.NewCooldowns()
		s.values[KeyCooldowns] = c
	}
	return c
}

// ShowDebug reports whether the debug panel is enabled.
func (s *Session) ShowDebug() bool {
	b, _ := s.values[KeyShowDebug].(bool)
	return b
}

// SetShowDebug toggles the debug panel.
func (s *Session) SetShowDebug(on bool) { s.values[KeyShowDebug] = on }

// Generation returns the last AI generation, if any.
func (s *Session) Generation() *Generation {
	g, _ := s.values[KeyGeneration].(*Generation)
	return g
}

// SetGeneration stores the last AI generation; nil clears it.
func (s *Session) SetGeneration(g *Generation) { s.values[KeyGeneration] = g }

// Overrides returns per-session generation overrides, or def if unset.
func (s *Session) Overrides(def Overrides) Overrides {
	o, ok := s.values[KeyOverrides].(Overrides)
	if !ok {
		return def
	}
	return o
}

// SetOverrides stores per-session generation overrides.
func (s *Session) SetOverrides(o Overrides) { s.values[KeyOverrides] = o }

// ExportFormat returns the last chosen export format.
func (s *Session) ExportFormat() string {
	f, _ := s.values[KeyExportFormat].(string)
	if f == "" {
		return "markdown"
	}
	return f
}

// SetExportFormat remembers the chosen export format.
func (s *Session) SetExportFormat(f string) { s.values[KeyExportFormat] = f }

// WorldBibleFilter returns the entity kind filter for the world bible.
func (s *Session) WorldBibleFilter() string {
	f, _ := s.values[KeyWorldBibleFilter].(string)
	return f
}

// SetWorldBibleFilter stores the entity kind filter.
func (s *Session) SetWorldBibleFilter(f string) { s.values[KeyWorldBibleFilter] = f }
