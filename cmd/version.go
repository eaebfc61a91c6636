package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/config"
	mcpserver "github.com/ziadkadry99/storyforge/internal/mcp"
)

// Version is set via ldflags at build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the storyforge version",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := config.Load(cfgFile)
		fmt.Printf("storyforge %s\n", cfg.AppVersion)
	},
}

func init() {
	config.Version = Version
	mcpserver.Version = Version
	rootCmd.AddCommand(versionCmd)
}
