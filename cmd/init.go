package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize storyforge configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick an AI provider, model and directories, and writes the answers to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := config.Load(cfgFile)
		cfg, err := config.RunWizard(cfgFile, base)
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved %s (provider %s, model %s). Start writing with `storyforge serve`.\n", cfgFile, cfg.Provider, cfg.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
