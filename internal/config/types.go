package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
)

// EmbeddingProvider selects how lore recall embeds text.
type EmbeddingProvider string

const (
	EmbeddingLocal  EmbeddingProvider = "local"
	EmbeddingOpenAI EmbeddingProvider = "openai"
	EmbeddingOllama EmbeddingProvider = "ollama"
	EmbeddingGoogle EmbeddingProvider = "google"
)

// Config is the top-level storyforge configuration, corresponding to .storyforge.yml.
type Config struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`

	OpenAIAPIKey     string `yaml:"openai_api_key,omitempty" koanf:"openai_api_key"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key,omitempty" koanf:"anthropic_api_key"`
	GoogleAPIKey     string `yaml:"google_api_key,omitempty" koanf:"google_api_key"`
	OpenRouterAPIKey string `yaml:"openrouter_api_key,omitempty" koanf:"openrouter_api_key"`
	OllamaHost       string `yaml:"ollama_host" koanf:"ollama_host"`

	Temperature           float64 `yaml:"temperature" koanf:"temperature"`
	MaxTokens             int     `yaml:"max_tokens" koanf:"max_tokens"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
	RequestsPerMinute     int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`

	SaveCooldownSeconds     float64 `yaml:"save_cooldown_seconds" koanf:"save_cooldown_seconds"`
	GenerateCooldownSeconds float64 `yaml:"generate_cooldown_seconds" koanf:"generate_cooldown_seconds"`

	ProjectsDir       string `yaml:"projects_dir" koanf:"projects_dir"`
	DataDir           string `yaml:"data_dir" koanf:"data_dir"`
	Port              int    `yaml:"port" koanf:"port"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes" koanf:"session_ttl_minutes"`

	Theme          string `yaml:"theme" koanf:"theme"`
	EditorFontSize int    `yaml:"editor_font_size" koanf:"editor_font_size"`
	ShowDebugPanel bool   `yaml:"show_debug_panel" koanf:"show_debug_panel"`
	LogLevel       string `yaml:"log_level" koanf:"log_level"`

	RecallEnabled     bool              `yaml:"recall_enabled" koanf:"recall_enabled"`
	EmbeddingProvider EmbeddingProvider `yaml:"embedding_provider" koanf:"embedding_provider"`

	// AppVersion is never read from the file; it comes from the build or
	// STORYFORGE_VERSION.
	AppVersion string `yaml:"-" koanf:"-"`
}

// Warning records a field that could not be honoured and fell back to its
// default. Warnings never stop startup.
type Warning struct {
	Field  string
	Reason string
}

func (w Warning) String() string {
	if w.Field == "" {
		return w.Reason
	}
	return w.Field + ": " + w.Reason
}

// Warnings is the non-fatal signal returned by Load.
type Warnings []Warning

// Has reports whether a warning was recorded for field.
func (ws Warnings) Has(field string) bool {
	for _, w := range ws {
		if w.Field == field {
			return true
		}
	}
	return false
}
