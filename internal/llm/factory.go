package llm

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/ziadkadry99/storyforge/internal/config"
)

// Option adjusts provider construction.
type Option func(*options)

type options struct {
	storedKey    func(config.ProviderType) string
	googleTokens oauth2.TokenSource
}

// WithStoredKeys supplies API keys used when cfg carries none for the
// selected provider.
func WithStoredKeys(fn func(config.ProviderType) string) Option {
	return func(o *options) { o.storedKey = fn }
}

// WithGoogleTokenSource authorizes Gemini requests with OAuth2 tokens when
// no Google API key is configured.
func WithGoogleTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) { o.googleTokens = ts }
}

// NewProvider creates the provider selected by cfg, wrapped in a rate
// limiter when cfg.RequestsPerMinute is positive. A missing API key is
// reported as an ErrAuth failure so callers can show the same advisory as
// for a rejected key.
func NewProvider(cfg *config.Config, opts ...Option) (Provider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p, err := newBaseProvider(cfg, o)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, cfg.RequestsPerMinute)
	}
	return p, nil
}

func newBaseProvider(cfg *config.Config, o options) (Provider, error) {
	key := cfg.APIKey(cfg.Provider)
	if key == "" && o.storedKey != nil {
		key = o.storedKey(cfg.Provider)
	}
	missing := func() error {
		return &ProviderError{
			Kind:     ErrAuth,
			Provider: string(cfg.Provider),
			Err:      fmt.Errorf("%s is not set", config.APIKeyEnvVar(cfg.Provider)),
		}
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if key == "" {
			return nil, missing()
		}
		return NewOpenAIProvider(key, cfg.Model, ""), nil

	case config.ProviderOpenRouter:
		if key == "" {
			return nil, missing()
		}
		return NewOpenRouterProvider(key, cfg.Model), nil

	case config.ProviderAnthropic:
		if key == "" {
			return nil, missing()
		}
		return NewAnthropicProvider(key, cfg.Model), nil

	case config.ProviderGoogle:
		if key == "" && o.googleTokens != nil {
			return NewGoogleProvider("", cfg.Model).WithTokenSource(o.googleTokens), nil
		}
		if key == "" {
			return nil, missing()
		}
		return NewGoogleProvider(key, cfg.Model), nil

	case config.ProviderOllama:
		host := cfg.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}

// failedProvider stands in for a provider that could not be constructed,
// so every call still yields a classified error.
type failedProvider struct {
	name string
	err  error
}

// Failed returns a Provider whose Complete always returns err, classified.
func Failed(name string, err error) Provider {
	return &failedProvider{name: name, err: Classify(name, err)}
}

func (f *failedProvider) Name() string { return f.name }

func (f *failedProvider) Complete(context.Context, CompletionRequest) (*CompletionResponse, error) {
	return nil, f.err
}
