package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "storyforge",
	Short: "Self-hosted creative writing workbench with AI drafting",
	Long: `storyforge serves a browser workbench for novels and stories: projects,
chapters, an outline, a world bible and AI memory notes, with AI-assisted
drafting through OpenAI, Anthropic, Google, OpenRouter or a local Ollama.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".storyforge.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
