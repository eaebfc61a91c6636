package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/storyforge/internal/atomicfile"
	"github.com/ziadkadry99/storyforge/internal/export"
	"github.com/ziadkadry99/storyforge/internal/project"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project as markdown, html, txt or json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()

		format, ok := export.ParseFormat(exportFormat)
		if !ok {
			names := make([]string, 0, len(export.Formats()))
			for _, f := range export.Formats() {
				names = append(names, string(f))
			}
			return fmt.Errorf("unknown format %q (want one of %s)", exportFormat, strings.Join(names, ", "))
		}

		p, err := project.NewStore(cfg.ProjectsDir).Load(args[0])
		if err != nil {
			return fmt.Errorf("loading project %s: %w", args[0], err)
		}

		doc, err := export.Render(p, format)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", format, err)
		}

		if exportOut == "-" {
			_, err := os.Stdout.Write(doc.Data)
			return err
		}

		out := exportOut
		if out == "" {
			out = doc.Filename
		} else if info, err := os.Stat(out); err == nil && info.IsDir() {
			out = filepath.Join(out, doc.Filename)
		}
		if err := atomicfile.WriteFile(out, doc.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Printf("Exported %q to %s (%d bytes)\n", p.Title, out, len(doc.Data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatMarkdown), "Export format")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory (- for stdout; defaults to the project's file name)")
	rootCmd.AddCommand(exportCmd)
}
