package config

import "time"

// Version is the hardcoded fallback when neither the build nor the
// environment supplies one. It is set via ldflags at build time.
var Version = "dev"

// Range limits applied while loading. Values outside them are treated as
// corrupt and replaced by the default.
const (
	MinTemperature    = 0.0
	MaxTemperature    = 2.0
	MinRequestTimeout = 1
	MaxRequestTimeout = 120
)

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[ProviderType]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderAnthropic:  "claude-haiku-4-5-20251001",
	ProviderGoogle:     "gemini-2.0-flash",
	ProviderOllama:     "llama3",
	ProviderOpenRouter: "openai/gpt-4o-mini",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:                ProviderOpenAI,
		Model:                   DefaultModels[ProviderOpenAI],
		OllamaHost:              "http://localhost:11434",
		Temperature:             0.7,
		MaxTokens:               1024,
		RequestTimeoutSeconds:   20,
		RequestsPerMinute:       20,
		SaveCooldownSeconds:     2,
		GenerateCooldownSeconds: 5,
		ProjectsDir:             "projects",
		DataDir:                 ".storyforge",
		Port:                    8501,
		SessionTTLMinutes:       120,
		Theme:                   "light",
		EditorFontSize:          16,
		ShowDebugPanel:          false,
		LogLevel:                "info",
		RecallEnabled:           true,
		EmbeddingProvider:       EmbeddingLocal,
		AppVersion:              Version,
	}
}

// RequestTimeout is the bounded timeout applied to every AI call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SaveCooldown is the minimum interval between two saves of the same chapter.
func (c *Config) SaveCooldown() time.Duration {
	return seconds(c.SaveCooldownSeconds)
}

// GenerateCooldown is the minimum interval between two AI generations.
func (c *Config) GenerateCooldown() time.Duration {
	return seconds(c.GenerateCooldownSeconds)
}

// SessionTTL is how long an idle browser session is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
