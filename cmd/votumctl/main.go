// Command votumctl rebuilds and inspects end results against the configured
// database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	contestService "votum/internal/contest/service"
	contestStore "votum/internal/contest/store"
	endResultService "votum/internal/endresult/service"
	endResultStore "votum/internal/endresult/store"
	"votum/internal/platform/config"
	"votum/internal/platform/logger"
	"votum/internal/platform/postgres"
	platformRedis "votum/internal/platform/redis"
	eventPostgres "votum/pkg/platform/eventstore/postgres"
)

var (
	flagBusiness    string
	flagConcurrency int
)

var rootCmd = &cobra.Command{
	Use:          "votumctl",
	Short:        "Operate on stored end results",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 8,
		"counting circle results loaded in parallel per political business")
	rootCmd.AddCommand(rebuildCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps is what every subcommand needs.
type deps struct {
	contests   *contestService.Service
	endResults *endResultService.Service
	logger     *slog.Logger
	close      func()
}

func connect(ctx context.Context) (*deps, error) {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, "text")
	if cfg.InMemory() {
		return nil, errors.New("DATABASE_URL is required")
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := postgres.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { _ = db.Close() })
	pool, err := postgres.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, pool.Close)

	var results endResultService.Store = endResultStore.NewInMemory()
	if cfg.Redis.URL != "" {
		client, err := platformRedis.New(ctx, cfg.Redis)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		results = endResultStore.NewRedis(client.Client)
	}

	contests, err := contestService.New(contestStore.NewPostgres(pool), contestService.WithLogger(log))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("contest service: %w", err)
	}
	endResults := endResultService.New(eventPostgres.New(db), contests, results,
		endResultService.WithLogger(log),
		endResultService.WithLoadConcurrency(flagConcurrency),
	)
	return &deps{contests: contests, endResults: endResults, logger: log, close: closeAll}, nil
}
