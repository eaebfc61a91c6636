package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/auth"
	"github.com/ziadkadry99/storyforge/internal/config"
)

// keyProviders are the providers that authenticate with an API key.
var keyProviders = []config.ProviderType{
	config.ProviderOpenAI,
	config.ProviderAnthropic,
	config.ProviderGoogle,
	config.ProviderOpenRouter,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials for AI providers",
	Long: `Store and manage credentials for AI providers.

Credentials are kept in credentials.json inside the data directory and are
used only when neither the environment nor the config file supplies a key.`,
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Authorize Gemini access via Google OAuth2",
	Long: `Opens your browser for Google OAuth2 authorization.

This grants storyforge access to the Generative Language API (Gemini).
You need a Google Cloud OAuth2 Client ID and Secret, read from
GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or prompted for.`,
	RunE: runAuthGoogle,
}

var authKeyCmd = &cobra.Command{
	Use:       "key <provider>",
	Short:     "Store an API key for a provider",
	Args:      cobra.ExactArgs(1),
	ValidArgs: providerNames(),
	RunE:      runAuthKey,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where each provider's credentials come from",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [provider]",
	Short: "Remove stored credentials",
	Long:  `Removes stored credentials for one provider, or for all of them when no provider is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authGoogleCmd)
	authCmd.AddCommand(authKeyCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func providerNames() []string {
	names := make([]string, len(keyProviders))
	for i, p := range keyProviders {
		names[i] = string(p)
	}
	return names
}

func parseKeyProvider(name string) (config.ProviderType, error) {
	for _, p := range keyProviders {
		if string(p) == strings.ToLower(name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (valid: %s)", name, strings.Join(providerNames(), ", "))
}

func credentialStore() (*auth.Store, *auth.Credentials, error) {
	cfg, _ := config.Load(cfgFile)
	store := auth.NewStore(cfg.DataDir)
	creds, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading credentials: %w", err)
	}
	return store, creds, nil
}

func promptValue(label string, mask bool) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("a value is required")
			}
			return nil
		},
	}
	if mask {
		p.Mask = '*'
	}
	v, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %w", label, err)
	}
	return strings.TrimSpace(v), nil
}

func runAuthGoogle(cmd *cobra.Command, args []string) error {
	store, creds, err := credentialStore()
	if err != nil {
		return err
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if clientID == "" {
		if clientID, err = promptValue("Google OAuth2 Client ID", false); err != nil {
			return err
		}
	}
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientSecret == "" {
		if clientSecret, err = promptValue("Google OAuth2 Client Secret", true); err != nil {
			return err
		}
	}

	flow := auth.NewGoogleFlow(clientID, clientSecret)
	open := flow.Open
	flow.Open = func(url string) {
		fmt.Printf("\nOpening browser for Google authorization...\n")
		fmt.Printf("If the browser doesn't open, visit this URL:\n%s\n\n", url)
		open(url)
	}

	token, err := flow.Run(context.Background())
	if err != nil {
		return fmt.Errorf("OAuth flow failed: %w", err)
	}

	creds.Google = auth.NewGoogleCredentials(clientID, clientSecret, token)
	if err := store.Save(creds); err != nil {
		return err
	}
	fmt.Printf("Google credentials stored in %s\n", store.Path())
	return nil
}

func runAuthKey(cmd *cobra.Command, args []string) error {
	provider, err := parseKeyProvider(args[0])
	if err != nil {
		return err
	}
	store, creds, err := credentialStore()
	if err != nil {
		return err
	}

	key, err := promptValue(fmt.Sprintf("%s API key", provider), true)
	if err != nil {
		return err
	}
	creds.SetAPIKey(provider, key)
	if err := store.Save(creds); err != nil {
		return err
	}
	fmt.Printf("%s key %s stored in %s\n", provider, config.MaskSecret(key), store.Path())
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, _ := config.Load(cfgFile)
	store, creds, err := credentialStore()
	if err != nil {
		return err
	}

	fmt.Printf("Credentials file: %s\n\n", store.Path())
	fmt.Println("Provider     Status")
	fmt.Println("--------     ------")

	for _, p := range keyProviders {
		status := "not configured"
		switch {
		case os.Getenv(config.APIKeyEnvVar(p)) != "":
			status = "configured (env var)"
		case cfg.APIKey(p) != "":
			status = "configured (config file)"
		case creds.APIKey(p) != "":
			status = "configured (stored key)"
		case p == config.ProviderGoogle && creds.HasGoogleOAuth():
			status = "configured (stored OAuth2)"
		}
		fmt.Printf("%-12s %s\n", p, status)
	}
	fmt.Printf("%-12s available (local, %s)\n", config.ProviderOllama, cfg.OllamaHost)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, creds, err := credentialStore()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		creds = &auth.Credentials{}
		fmt.Println("All stored credentials removed.")
	} else {
		provider, err := parseKeyProvider(args[0])
		if err != nil {
			return err
		}
		creds.SetAPIKey(provider, "")
		if provider == config.ProviderGoogle {
			creds.Google = nil
		}
		fmt.Printf("%s credentials removed.\n", provider)
	}
	return store.Save(creds)
}
