package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/iammattholland/escapebudget/internal/config"
	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/storage"
)

// initStorage opens the database with proper path expansion and runs
// pending migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// matchConfig builds the scoring knobs from viper, falling back to the
// documented defaults.
func matchConfig() service.MatchConfig {
	cfg := service.DefaultMatchConfig()

	if v := viper.GetInt("transfers.lookback_days"); v > 0 {
		cfg.LookbackDays = v
	}
	if viper.IsSet("transfers.window_days") {
		cfg.CandidateWindowDays = viper.GetInt("transfers.window_days")
	}
	if v := viper.GetInt("transfers.max_days_apart"); v > 0 {
		cfg.MaxDaysApart = v
	}
	if viper.IsSet("transfers.min_score") {
		cfg.MinScore = viper.GetFloat64("transfers.min_score")
	}
	if viper.IsSet("transfers.max_amount_difference_cents") {
		cfg.MaxAmountDifferenceCents = viper.GetInt64("transfers.max_amount_difference_cents")
	}
	if v := viper.GetInt("transfers.limit"); v > 0 {
		cfg.Limit = v
	}
	if v := viper.GetInt("transfers.fetch_limit"); v > 0 {
		cfg.FetchLimit = v
	}

	return cfg
}
