package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/assist"
	"github.com/ziadkadry99/storyforge/internal/llm"
	"github.com/ziadkadry99/storyforge/internal/pages"
	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
	"github.com/ziadkadry99/storyforge/internal/usage"
	"github.com/ziadkadry99/storyforge/internal/web"
)

var (
	servePort     int
	serveAllowAll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storyforge web workbench",
	Long:  `Starts the HTTP server that hosts the writing workbench. Configuration problems are reported as warnings and never stop startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, warnings := loadConfig()
		log := newLogger(cfg)
		defer log.Sync() //nolint:errcheck

		if servePort > 0 {
			cfg.Port = servePort
		}

		store := project.NewStore(cfg.ProjectsDir)

		var ledger *usage.Store
		database, err := openLedger(cfg)
		if err != nil {
			log.Warn("usage ledger disabled", zap.Error(err))
		} else {
			defer database.Close()
			ledger = usage.NewStore(database)
		}

		// A provider that cannot be built still lets the workbench run; every
		// generation then reports the construction failure as an advisory.
		provider, err := llm.NewProvider(cfg, providerOptions(cfg, log)...)
		if err != nil {
			log.Warn("AI provider unavailable", zap.String("provider", string(cfg.Provider)), zap.Error(err))
			provider = llm.Failed(string(cfg.Provider), err)
		}

		idx := newRecall(cfg, log)
		svc := assist.New(cfg, provider, log).WithRecall(idx)
		if ledger != nil {
			svc = svc.WithLedger(ledger)
		}

		app := pages.New(pages.Deps{
			Config:     cfg,
			ConfigPath: cfgFile,
			Warnings:   warnings,
			Store:      store,
			Assist:     svc,
			Usage:      ledger,
			Recall:     idx,
			Log:        log,
		})
		pageRouter := router.New(log)
		app.Register(pageRouter)

		srv := web.New(web.Config{
			Port:     cfg.Port,
			AllowAll: serveAllowAll,
			Timeout:  cfg.RequestTimeout() + 30*time.Second,
			Version:  cfg.AppVersion,
		}, app, pageRouter, session.NewManager(cfg, log), svc, log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		fmt.Fprintf(os.Stderr, "storyforge %s starting on http://localhost:%d\n", cfg.AppVersion, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Projects: %s\n", cfg.ProjectsDir)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", cfg.Provider, cfg.Model)

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides the config file)")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "Allow cross-origin requests from any origin (development only)")
	rootCmd.AddCommand(serveCmd)
}
