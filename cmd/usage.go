package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/usage"
)

var (
	usageProject string
	usageRecent  int
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Report AI token usage and cost",
	Long:  `Summarizes the generation ledger: request and failure counts, tokens, estimated cost, and the most recent generations.`,
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().StringVar(&usageProject, "project", "", "Only count generations for this project ID")
	usageCmd.Flags().IntVarP(&usageRecent, "recent", "n", 10, "Number of recent generations to list")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, _ := loadConfig()

	database, err := openLedger(cfg)
	if err != nil {
		return fmt.Errorf("opening usage ledger: %w", err)
	}
	defer database.Close()
	store := usage.NewStore(database)

	sum, err := store.Summarize(ctx, usageProject)
	if err != nil {
		return err
	}
	if sum.Requests == 0 {
		fmt.Println("No generations recorded yet.")
		return nil
	}

	fmt.Println("Usage")
	fmt.Println("=====")
	fmt.Printf("  Requests:       %d (%d failed)\n", sum.Requests, sum.Failures)
	fmt.Printf("  Input tokens:   %d\n", sum.InputTokens)
	fmt.Printf("  Output tokens:  %d\n", sum.OutputTokens)
	fmt.Printf("  Estimated cost: $%.4f\n", sum.CostUSD)
	fmt.Println()

	fmt.Println("  By task:")
	printCounts(sum.ByTask)
	fmt.Println("  By outcome:")
	printCounts(sum.ByOutcome)

	if usageRecent <= 0 {
		return nil
	}
	recent, err := store.Recent(ctx, usageRecent)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("  Recent:")
	fmt.Println("  ────────────────────────────────────────")
	for _, e := range recent {
		fmt.Printf("  %s  %-10s %-12s %-24s %6d in %6d out  $%.4f  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Task, e.Outcome, e.Model,
			e.InputTokens, e.OutputTokens, e.CostUSD, e.Duration.Round(time.Millisecond))
	}
	return nil
}

func printCounts(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("    %-20s %d\n", k, m[k])
	}
}
