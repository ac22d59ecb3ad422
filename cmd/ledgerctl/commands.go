package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dafibh/fortuna/ledger-backend/internal/config"
	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/repository/postgres"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/google/subcommands"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.LoadTooling()
	if err != nil {
		return nil, nil, err
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBStatementTimeout)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

type migrateCmd struct {
	down    int
	version bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply, roll back or inspect schema migrations" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-down <steps>] [-version]

  Without flags, applies every pending migration.
`
}

func (m *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&m.down, "down", 0, "Roll back this many migrations instead of applying.")
	f.BoolVar(&m.version, "version", false, "Print the current schema version and exit.")
}

func (m *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	switch {
	case m.version:
		version, dirty, err := postgres.MigrationVersion(pool)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	case m.down > 0:
		if err := postgres.RollbackMigrations(pool, m.down); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		log.Info().Int("steps", m.down).Msg("Migrations rolled back")
	default:
		if err := postgres.RunMigrations(pool); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		log.Info().Msg("Migrations applied")
	}
	return subcommands.ExitSuccess
}

type seedCategoriesCmd struct{}

func (*seedCategoriesCmd) Name() string           { return "seed-categories" }
func (*seedCategoriesCmd) Synopsis() string       { return "create any missing default categories" }
func (*seedCategoriesCmd) Usage() string          { return "ledgerctl seed-categories\n" }
func (*seedCategoriesCmd) SetFlags(*flag.FlagSet) {}

func (*seedCategoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	created, err := service.NewCategoryService(postgres.NewStore(pool)).SeedDefaults(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	log.Info().Int("created", created).Msg("Default categories seeded")
	return subcommands.ExitSuccess
}

type postRecurringCmd struct {
	workers int
}

func (*postRecurringCmd) Name() string     { return "post-recurring" }
func (*postRecurringCmd) Synopsis() string { return "post every due recurring transaction once and exit" }
func (*postRecurringCmd) Usage() string {
	return `ledgerctl post-recurring [-workers <n>]

  Runs one pass of the recurring scheduler, the same pass the API server
  runs on its interval, and prints the run summary as JSON.
`
}

func (p *postRecurringCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.workers, "workers", 0, "Items processed concurrently (defaults to RECURRING_WORKERS).")
}

func (p *postRecurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	workers := cfg.Recurring.Workers
	if p.workers > 0 {
		workers = p.workers
	}

	store := postgres.NewStore(pool)
	clock := domain.SystemClock{}
	monitor := service.NewBudgetMonitor(clock, log.Logger, domain.DefaultCurrency)
	engine := service.NewTransactionService(store, monitor, clock, log.Logger)
	poster := service.NewRecurringPoster(store, engine, clock, log.Logger, service.RecurringPosterConfig{
		Workers:          workers,
		BatchSize:        service.DefaultRecurringBatch,
		LoanReminderDays: cfg.Recurring.LoanReminderDays,
	})

	runCtx, cancel := context.WithTimeout(ctx, cfg.Recurring.RunTimeout)
	defer cancel()
	result, err := poster.PostDue(runCtx)
	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if result.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
