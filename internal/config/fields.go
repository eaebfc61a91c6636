package config

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// field binds one config key to a coercion that writes into Config. apply
// returns an error and leaves Config untouched when the raw value is unusable.
type field struct {
	key   string
	apply func(c *Config, raw any) error
}

var fields = []field{
	enumField("provider", func(c *Config, v string) { c.Provider = ProviderType(v) },
		string(ProviderOpenAI), string(ProviderAnthropic), string(ProviderGoogle), string(ProviderOllama), string(ProviderOpenRouter)),
	stringField("model", false, func(c *Config) *string { return &c.Model }),

	stringField("openai_api_key", true, func(c *Config) *string { return &c.OpenAIAPIKey }),
	stringField("anthropic_api_key", true, func(c *Config) *string { return &c.AnthropicAPIKey }),
	stringField("google_api_key", true, func(c *Config) *string { return &c.GoogleAPIKey }),
	stringField("openrouter_api_key", true, func(c *Config) *string { return &c.OpenRouterAPIKey }),
	stringField("ollama_host", false, func(c *Config) *string { return &c.OllamaHost }),

	floatField("temperature", MinTemperature, MaxTemperature, func(c *Config) *float64 { return &c.Temperature }),
	intField("max_tokens", 1, 32768, func(c *Config) *int { return &c.MaxTokens }),
	intField("request_timeout_seconds", MinRequestTimeout, MaxRequestTimeout, func(c *Config) *int { return &c.RequestTimeoutSeconds }),
	intField("requests_per_minute", 1, 10000, func(c *Config) *int { return &c.RequestsPerMinute }),

	floatField("save_cooldown_seconds", 0, 3600, func(c *Config) *float64 { return &c.SaveCooldownSeconds }),
	floatField("generate_cooldown_seconds", 0, 3600, func(c *Config) *float64 { return &c.GenerateCooldownSeconds }),

	stringField("projects_dir", false, func(c *Config) *string { return &c.ProjectsDir }),
	stringField("data_dir", false, func(c *Config) *string { return &c.DataDir }),
	intField("port", 1, 65535, func(c *Config) *int { return &c.Port }),
	intField("session_ttl_minutes", 1, 60*24*30, func(c *Config) *int { return &c.SessionTTLMinutes }),

	enumField("theme", func(c *Config, v string) { c.Theme = v }, "light", "dark"),
	intField("editor_font_size", 8, 48, func(c *Config) *int { return &c.EditorFontSize }),
	boolField("show_debug_panel", func(c *Config) *bool { return &c.ShowDebugPanel }),
	enumField("log_level", func(c *Config, v string) { c.LogLevel = v }, "debug", "info", "warn", "error"),

	boolField("recall_enabled", func(c *Config) *bool { return &c.RecallEnabled }),
	enumField("embedding_provider", func(c *Config, v string) { c.EmbeddingProvider = EmbeddingProvider(v) },
		string(EmbeddingLocal), string(EmbeddingOpenAI), string(EmbeddingOllama), string(EmbeddingGoogle)),
}

// safeString coerces scalars to a string and rejects maps and lists.
func safeString(raw any) (string, error) {
	switch raw.(type) {
	case map[string]any, []any:
		return "", fmt.Errorf("expected a scalar")
	}
	return cast.ToStringE(raw)
}

func safeInt(raw any) (int, error) {
	if _, ok := raw.(bool); ok {
		return 0, fmt.Errorf("expected a number, got a boolean")
	}
	if f, ok := raw.(float64); ok && (!finite(f) || f != math.Trunc(f)) {
		return 0, fmt.Errorf("expected a whole number")
	}
	return cast.ToIntE(raw)
}

// safeFloat rejects booleans, NaN and infinities, which cast would
// otherwise accept.
func safeFloat(raw any) (float64, error) {
	if _, ok := raw.(bool); ok {
		return 0, fmt.Errorf("expected a number, got a boolean")
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, err
	}
	if !finite(f) {
		return 0, fmt.Errorf("expected a finite number")
	}
	return f, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func safeBool(raw any) (bool, error) {
	return cast.ToBoolE(raw)
}

func stringField(key string, allowEmpty bool, dst func(*Config) *string) field {
	return field{key: key, apply: func(c *Config, raw any) error {
		s, err := safeString(raw)
		if err != nil {
			return err
		}
		if s == "" && !allowEmpty {
			return fmt.Errorf("must not be empty")
		}
		*dst(c) = s
		return nil
	}}
}

func intField(key string, min, max int, dst func(*Config) *int) field {
	return field{key: key, apply: func(c *Config, raw any) error {
		n, err := safeInt(raw)
		if err != nil {
			return err
		}
		if n < min || n > max {
			return fmt.Errorf("out of range [%d, %d]", min, max)
		}
		*dst(c) = n
		return nil
	}}
}

func floatField(key string, min, max float64, dst func(*Config) *float64) field {
	return field{key: key, apply: func(c *Config, raw any) error {
		f, err := safeFloat(raw)
		if err != nil {
			return err
		}
		if f < min || f > max {
			return fmt.Errorf("out of range [%g, %g]", min, max)
		}
		*dst(c) = f
		return nil
	}}
}

func boolField(key string, dst func(*Config) *bool) field {
	return field{key: key, apply: func(c *Config, raw any) error {
		b, err := safeBool(raw)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}}
}

func enumField(key string, set func(*Config, string), allowed ...string) field {
	return field{key: key, apply: func(c *Config, raw any) error {
		s, err := safeString(raw)
		if err != nil {
			return err
		}
		for _, a := range allowed {
			if s == a {
				set(c, s)
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", allowed)
	}}
}
