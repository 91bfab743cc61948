package main

import (
	"context"
	"flag"

	"tradejournal/internal/adapters/config"
	pgclient "tradejournal/internal/adapters/postgres"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/domain/user"
	pgrepo "tradejournal/internal/repository/postgres"
	"tradejournal/internal/seeds"
	"tradejournal/internal/services/ledger"
	"tradejournal/pkg/logger"
)

func main() {
	env := flag.String("env", "dev", "Environment: dev, test")
	dryRun := flag.Bool("dry-run", false, "List seed functions without executing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infow("Starting seeder",
		"environment", *env,
		"dry_run", *dryRun,
		"database", cfg.Postgres.Database,
	)

	steps := seeds.ForEnv(*env)
	if len(steps) == 0 {
		log.Warnw("No seeds available for environment", "environment", *env)
		return
	}

	log.Infow("Found seed functions", "environment", *env, "count", len(steps))
	if *dryRun {
		log.Info("✅ Dry-run mode: seed functions validated")
		return
	}

	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	ctx := context.Background()
	if err := pg.Migrate(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	users := user.NewService(pgrepo.NewUserRepository(pg.DB()))
	trades := trade.NewService(pgrepo.NewTradeRepository(pg.DB()))
	seeder := seeds.New(
		users,
		ledger.NewService(pgrepo.NewUnitOfWork(pg.DB()), users, trades, log),
		log,
	)
	if err := seeder.Run(ctx, steps); err != nil {
		log.Errorw("Failed to execute seeds", "error", err)
		return
	}

	log.Info("✅ All seeds applied successfully")
}
