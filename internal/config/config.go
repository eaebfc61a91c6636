package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/storyforge/internal/atomicfile"
)

// EnvPrefix is the prefix for environment overrides: STORYFORGE_MODEL -> model.
const EnvPrefix = "STORYFORGE_"

// VersionEnvVar overrides the application version.
const VersionEnvVar = "STORYFORGE_VERSION"

// source is one layer of configuration values.
type source struct {
	name string
	k    *koanf.Koanf
}

// Load reads configuration from the given YAML (or JSON) file and overlays
// environment variables. It never fails: a missing or unreadable file yields
// defaults, and every field is parsed on its own so one bad value only resets
// that field. Anything that was ignored is reported in the returned Warnings.
func Load(path string) (*Config, Warnings) {
	cfg := DefaultConfig()
	var warns Warnings

	fileK := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := fileK.Load(file.Provider(path), yaml.Parser()); err != nil {
				warns = append(warns, Warning{Reason: fmt.Sprintf("reading config %s: %v; using defaults", path, err)})
				fileK = koanf.New(".")
			}
		} else if os.IsNotExist(err) {
			warns = append(warns, Warning{Reason: fmt.Sprintf("config file %s not found; using defaults", path)})
		} else {
			warns = append(warns, Warning{Reason: fmt.Sprintf("accessing config %s: %v; using defaults", path, err)})
		}
	}

	envK := loadEnv()

	sources := []source{{name: "environment", k: envK}, {name: "file", k: fileK}}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		for _, src := range sources {
			if !src.k.Exists(f.key) {
				continue
			}
			raw := src.k.Get(f.key)
			if err := f.apply(cfg, raw); err != nil {
				warns = append(warns, Warning{
					Field:  f.key,
					Reason: fmt.Sprintf("invalid %s value %q: %v", src.name, fmt.Sprint(raw), err),
				})
				continue
			}
			set[f.key] = true
			break
		}
	}

	// A provider switch without an explicit model picks that provider's default.
	if !set["model"] {
		if m, ok := DefaultModels[cfg.Provider]; ok {
			cfg.Model = m
		}
	}

	if v := os.Getenv(VersionEnvVar); v != "" {
		cfg.AppVersion = v
	}

	return cfg, warns
}

// loadEnv collects STORYFORGE_* overrides, then fills API keys from the
// conventional provider variables where no prefixed override exists.
func loadEnv() *koanf.Koanf {
	k := koanf.New(".")
	// The env provider only reads the process environment; it cannot fail
	// on content.
	_ = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)

	for key, envVar := range conventionalEnv {
		if k.Exists(key) {
			continue
		}
		if v := os.Getenv(envVar); v != "" {
			_ = k.Set(key, v)
		}
	}
	return k
}

// conventionalEnv maps config keys to well-known provider variables.
var conventionalEnv = map[string]string{
	"openai_api_key":     "OPENAI_API_KEY",
	"anthropic_api_key":  "ANTHROPIC_API_KEY",
	"google_api_key":     "GOOGLE_API_KEY",
	"openrouter_api_key": "OPENROUTER_API_KEY",
	"ollama_host":        "OLLAMA_HOST",
}

// Save writes the configuration to the given YAML file path atomically.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderAnthropic:  true,
	ProviderGoogle:     true,
	ProviderOllama:     true,
	ProviderOpenRouter: true,
}

// Validate checks that the configuration contains usable values. Load never
// produces an invalid Config; Validate guards values edited at runtime.
func (c *Config) Validate() error {
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, anthropic, google, ollama, openrouter", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if !finite(c.Temperature) || c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return fmt.Errorf("temperature must be between %.1f and %.1f", MinTemperature, MaxTemperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.RequestTimeoutSeconds < MinRequestTimeout || c.RequestTimeoutSeconds > MaxRequestTimeout {
		return fmt.Errorf("request_timeout_seconds must be between %d and %d", MinRequestTimeout, MaxRequestTimeout)
	}
	if !finite(c.SaveCooldownSeconds) || c.SaveCooldownSeconds < 0 {
		return fmt.Errorf("save_cooldown_seconds must be a non-negative number")
	}
	if !finite(c.GenerateCooldownSeconds) || c.GenerateCooldownSeconds < 0 {
		return fmt.Errorf("generate_cooldown_seconds must be a non-negative number")
	}
	if c.ProjectsDir == "" {
		return fmt.Errorf("projects_dir is required")
	}
	return nil
}

// APIKey returns the configured API key for the given provider.
func (c *Config) APIKey(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGoogle:
		return c.GoogleAPIKey
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey
	default:
		return ""
	}
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// MaskSecret hides all but the last four characters of a key for display.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("•", len(s))
	}
	return strings.Repeat("•", 8) + s[len(s)-4:]
}

// WithoutEnvSecrets returns a copy of c with every API key that came from
// its conventional environment variable cleared, so saving the copy does not
// write those keys to disk.
func (c *Config) WithoutEnvSecrets() *Config {
	out := *c
	for _, p := range []ProviderType{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOpenRouter} {
		key := out.APIKey(p)
		if key == "" || os.Getenv(APIKeyEnvVar(p)) != key {
			continue
		}
		switch p {
		case ProviderOpenAI:
			out.OpenAIAPIKey = ""
		case ProviderAnthropic:
			out.AnthropicAPIKey = ""
		case ProviderGoogle:
			out.GoogleAPIKey = ""
		case ProviderOpenRouter:
			out.OpenRouterAPIKey = ""
		}
	}
	return &out
}
