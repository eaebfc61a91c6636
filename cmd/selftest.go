package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/selftest"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check configuration, storage, routing and the AI provider",
	Long:  `Runs a series of offline checks against scratch data and reports each one. Exits non-zero when any check fails; warnings do not fail the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		log := newLogger(cfg)
		defer log.Sync() //nolint:errcheck

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		report, err := selftest.Run(ctx, selftest.Options{
			ConfigPath:      cfgFile,
			Log:             log,
			ProviderOptions: providerOptions(cfg, log),
		})
		if err != nil {
			return fmt.Errorf("running self-test: %w", err)
		}

		fmt.Println("Self-test")
		fmt.Println("=========")
		for _, c := range report.Checks {
			fmt.Printf("  [%-4s] %-10s %6s  %s\n", c.Status, c.Name, c.Elapsed.Round(time.Millisecond), c.Detail)
		}
		fmt.Println()

		if !report.OK() {
			return fmt.Errorf("self-test failed")
		}
		fmt.Println("All checks passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}
