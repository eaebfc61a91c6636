package session

import (
	"time"

	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/uictx"
)

// Key names one entry of the session schema.
type Key string

const (
	KeyNav              Key = "nav"
	KeyNotices          Key = "notices"
	KeyLastError        Key = "last_error"
	KeyCooldowns        Key = "cooldowns"
	KeyShowDebug        Key = "show_debug"
	KeyGeneration       Key = "last_generation"
	KeyOverrides        Key = "generation_overrides"
	KeyExportFormat     Key = "export_format"
	KeyWorldBibleFilter Key = "worldbible_filter"
)

// ErrorRecord is the last failure caught by the router, kept for the debug
// panel until the user clears it or a newer failure replaces it.
type ErrorRecord struct {
	Page    string
	Message string
	Detail  string
	At      time.Time
}

// Generation is the most recent AI output shown in the editor or world bible.
type Generation struct {
	Task         string
	Text         string
	// Source is the passage a rewrite replaces when applied.
	Source       string
	ProjectID    string
	ChapterID    string
	EntityID     string
	Model        string
	InputTokens  int
	OutputTokens int
	At           time.Time
}

// Overrides are per-session generation settings layered over the config.
type Overrides struct {
	Model       string
	Temperature float64
}

// field is one schema entry. def may depend on config and may fail;
// fallback must not.
type field struct {
	key      Key
	def      func(cfg *config.Config) any
	fallback func() any
}

var schema = []field{
	{
		key:      KeyNav,
		def:      func(*config.Config) any { return nav.Home() },
		fallback: func() any { return nav.Home() },
	},
	{
		key:      KeyNotices,
		def:      func(*config.Config) any { return []notice.Notice(nil) },
		fallback: func() any { return []notice.Notice(nil) },
	},
	{
		key:      KeyLastError,
		def:      func(*config.Config) any { return (*ErrorRecord)(nil) },
		fallback: func() any { return (*ErrorRecord)(nil) },
	},
	{
		key:      KeyCooldowns,
		def:      func(*config.Config) any { return uictx.NewCooldowns() },
		fallback: func() any { return uictx.NewCooldowns() },
	},
	{
		key:      KeyShowDebug,
		def:      func(cfg *config.Config) any { return cfg.ShowDebugPanel },
		fallback: func() any { return false },
	},
	{
		key:      KeyGeneration,
		def:      func(*config.Config) any { return (*Generation)(nil) },
		fallback: func() any { return (*Generation)(nil) },
	},
	{
		key: KeyOverrides,
		def: func(cfg *config.Config) any {
			return Overrides{Model: cfg.Model, Temperature: cfg.Temperature}
		},
		fallback: func() any {
			d := config.DefaultConfig()
			return Overrides{Model: d.Model, Temperature: d.Temperature}
		},
	},
	{
		key:      KeyExportFormat,
		def:      func(*config.Config) any { return "markdown" },
		fallback: func() any { return "markdown" },
	},
	{
		key:      KeyWorldBibleFilter,
		def:      func(*config.Config) any { return "" },
		fallback: func() any { return "" },
	},
}

// Keys returns every recognized key in schema order.
func Keys() []Key {
	keys := make([]Key, len(schema))
	for i, f := range schema {
		keys[i] = f.key
	}
	return keys
}

func known(key Key) bool {
	for _, f := range schema {
		if f.key == key {
			return true
		}
	}
	return false
}
