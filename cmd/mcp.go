package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/storyforge/internal/mcp"
	"github.com/ziadkadry99/storyforge/internal/project"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing project, chapter, world bible and export tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		log := newLogger(cfg)
		defer log.Sync() //nolint:errcheck

		store := project.NewStore(cfg.ProjectsDir)
		idx := newRecall(cfg, log)

		// stdout carries the protocol; status goes to stderr.
		fmt.Fprintf(os.Stderr, "storyforge MCP server started on stdio (projects=%s, recall=%t)\n", cfg.ProjectsDir, idx != nil)

		return mcpserver.NewServer(store, idx).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
