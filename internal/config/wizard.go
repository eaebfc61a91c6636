package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path, and returns it. Existing values in base are offered as defaults.
func RunWizard(path string, base *Config) (*Config, error) {
	fmt.Println("Welcome to storyforge! Let's set up your writing studio.")
	fmt.Println()

	cfg := *base

	// 1. Provider selection.
	providers := []string{"openai", "anthropic", "google", "ollama", "openrouter"}
	providerPrompt := promptui.Select{
		Label: "Select AI provider",
		Items: providers,
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	if ProviderType(providerStr) != cfg.Provider {
		cfg.Model = DefaultModels[ProviderType(providerStr)]
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Temperature.
	tempPrompt := promptui.Prompt{
		Label:   "Creativity (temperature 0.0-2.0)",
		Default: strconv.FormatFloat(cfg.Temperature, 'f', -1, 64),
		Validate: func(s string) error {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("not a number")
			}
			if f < MinTemperature || f > MaxTemperature {
				return fmt.Errorf("must be between %.1f and %.1f", MinTemperature, MaxTemperature)
			}
			return nil
		},
	}
	tempStr, err := tempPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	cfg.Temperature, _ = strconv.ParseFloat(tempStr, 64)

	// 4. Projects directory.
	dirPrompt := promptui.Prompt{
		Label:   "Directory for project files",
		Default: cfg.ProjectsDir,
	}
	if cfg.ProjectsDir, err = dirPrompt.Run(); err != nil {
		return nil, fmt.Errorf("projects dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// API keys are deliberately not prompted for; they belong in the environment.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" && cfg.APIKey(cfg.Provider) == "" {
		fmt.Printf("\nNote: Set %s in your environment before generating text.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return &cfg, nil
}
