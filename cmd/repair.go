package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/progress"
	"github.com/ziadkadry99/storyforge/internal/project"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recover project files damaged by interrupted saves",
	Long: `Scans the projects directory. Leftover temp files are removed, corrupt
project files are restored from their .bak copy, and files that cannot be
recovered are renamed aside so the workbench no longer lists them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()

		store := project.NewStore(cfg.ProjectsDir)
		report, err := store.Repair(progress.Func(progress.NewReporter(os.Stderr, "Repairing projects")))
		if err != nil {
			return fmt.Errorf("repairing %s: %w", cfg.ProjectsDir, err)
		}

		for _, res := range report.Results {
			if res.Action == project.RepairOK {
				continue
			}
			line := fmt.Sprintf("  %-16s %s", res.Action, res.Path)
			if res.Detail != "" {
				line += " (" + res.Detail + ")"
			}
			fmt.Println(line)
		}

		fmt.Printf("\nChecked %d file(s): %d ok, %d temp removed, %d restored, %d quarantined, %d failed\n",
			len(report.Results),
			report.Count(project.RepairOK),
			report.Count(project.RepairRemovedTemp),
			report.Count(project.RepairRestored),
			report.Count(project.RepairQuarantined),
			report.Count(project.RepairFailed))

		if n := report.Count(project.RepairFailed); n > 0 {
			return fmt.Errorf("%d file(s) could not be repaired", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
