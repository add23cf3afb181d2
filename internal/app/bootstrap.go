package app

import (
	"context"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/settings"
	"portfolio-tracker/observability"
	"portfolio-tracker/repository"
)

// Open builds an App for a process entry point. The database and the
// settings store are optional: when either cannot be opened the App runs
// without it and says so in the log.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) *App {
	var base []Option

	if cfg.Database.URL != "" {
		repo, err := repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Warn("database unavailable, running in memory", "error", err)
		} else {
			observability.Info("connected to database")
			base = append(base, WithStore(repo))
		}
	} else {
		observability.Info("DATABASE_URL not set, running in memory")
	}

	store, err := settings.NewStore(cfg.Settings.Dir, cfg.Settings.Passphrase)
	if err != nil {
		observability.Warn("settings store disabled", "error", err)
	} else {
		base = append(base, WithSettings(store, settings.NewValidator()))
	}

	return New(cfg, append(base, opts...)...)
}
