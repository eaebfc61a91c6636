package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/auth"
	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/db"
	"github.com/ziadkadry99/storyforge/internal/embeddings"
	"github.com/ziadkadry99/storyforge/internal/llm"
	"github.com/ziadkadry99/storyforge/internal/logging"
	"github.com/ziadkadry99/storyforge/internal/recall"
)

// loadConfig loads the config file. Warnings are printed and never fatal.
func loadConfig() (*config.Config, config.Warnings) {
	cfg, warnings := config.Load(cfgFile)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return cfg, warnings
}

// newLogger builds the process logger, falling back to info level when the
// configured level is unusable.
func newLogger(cfg *config.Config) *zap.Logger {
	log, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		log, err = logging.New("info", verbose)
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// openLedger opens the usage database inside the data directory.
func openLedger(cfg *config.Config) (*db.DB, error) {
	return db.Open(filepath.Join(cfg.DataDir, db.FileName))
}

// newRecall builds the lore index. Recall is optional; a nil index turns it
// off.
func newRecall(cfg *config.Config, log *zap.Logger) *recall.Index {
	if !cfg.RecallEnabled {
		return nil
	}
	embedder, err := embeddings.New(cfg)
	if err != nil {
		log.Warn("recall disabled", zap.Error(err))
		return nil
	}
	return recall.New(embedder)
}

// providerOptions lets providers fall back to credentials stored with
// `storyforge auth`. An unreadable credentials file is logged and ignored.
func providerOptions(cfg *config.Config, log *zap.Logger) []llm.Option {
	store := auth.NewStore(cfg.DataDir)
	creds, err := store.Load()
	if err != nil {
		log.Warn("ignoring stored credentials", zap.String("path", store.Path()), zap.Error(err))
		return nil
	}
	opts := []llm.Option{llm.WithStoredKeys(creds.APIKey)}
	if creds.HasGoogleOAuth() {
		opts = append(opts, llm.WithGoogleTokenSource(auth.GoogleTokenSource(context.Background(), creds.Google)))
	}
	return opts
}
