// Package auth keeps provider credentials outside the config file: API keys
// entered through `storyforge auth` and Google OAuth2 tokens for Gemini.
// Stored credentials are a fallback; keys from the environment or the
// config file always win.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/storyforge/internal/atomicfile"
	"github.com/ziadkadry99/storyforge/internal/config"
)

// FileName is the credentials file inside the data directory.
const FileName = "credentials.json"

// GoogleCredentials stores OAuth2 tokens for the Generative Language API.
type GoogleCredentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpiry  string `json:"token_expiry,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Credentials holds everything stored for the supported providers.
type Credentials struct {
	Google  *GoogleCredentials             `json:"google,omitempty"`
	APIKeys map[config.ProviderType]string `json:"api_keys,omitempty"`
}

// APIKey returns the stored key for provider, or "".
func (c *Credentials) APIKey(provider config.ProviderType) string {
	if c == nil {
		return ""
	}
	return c.APIKeys[provider]
}

// SetAPIKey stores key for provider. An empty key removes it.
func (c *Credentials) SetAPIKey(provider config.ProviderType, key string) {
	if key == "" {
		delete(c.APIKeys, provider)
		return
	}
	if c.APIKeys == nil {
		c.APIKeys = map[config.ProviderType]string{}
	}
	c.APIKeys[provider] = key
}

// HasGoogleOAuth reports whether a refreshable Google token is stored.
func (c *Credentials) HasGoogleOAuth() bool {
	return c != nil && c.Google != nil && c.Google.RefreshToken != ""
}

// Store reads and writes the credentials file.
type Store struct {
	path string
}

// NewStore returns a Store for the credentials file in dataDir.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, FileName)}
}

// Path returns the credentials file path.
func (s *Store) Path() string { return s.path }

// Load reads the credentials. A missing file yields empty credentials.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", s.path, err)
	}
	return &creds, nil
}

// Save writes the credentials readable by the owner only.
func (s *Store) Save(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}
	if err := atomicfile.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
