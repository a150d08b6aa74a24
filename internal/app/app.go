package app

import (
	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/adapter/priceprovider/coingecko"
	"github.com/rafaelcosta/cryptofolio-backend/internal/adapter/repository/postgres"
	"github.com/rafaelcosta/cryptofolio-backend/internal/config"
	"github.com/rafaelcosta/cryptofolio-backend/internal/usecase/ledger"
	"github.com/rafaelcosta/cryptofolio-backend/internal/usecase/simulation"
	"github.com/rafaelcosta/cryptofolio-backend/internal/usecase/snapshot"
	"github.com/rafaelcosta/cryptofolio-backend/internal/usecase/valuation"
)

// App aggregates the wired use-case services. It is the boundary any thin
// client (HTTP handler, CLI, test harness) consumes the core through.
type App struct {
	Ledger     *ledger.Service
	Valuation  *valuation.Service
	Simulation *simulation.Service
	Scheduler  *snapshot.Scheduler
}

// New wires repositories, the price provider and the use-case services
// together against an open database connection.
func New(cfg config.Config, db *postgres.DB, logger *zap.Logger) *App {
	assetRepo := postgres.NewAssetRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)
	snapshotLogRepo := postgres.NewSnapshotLogRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)

	provider := coingecko.New(cfg.Provider, logger)

	ledgerSvc := ledger.NewService(assetRepo, transactionRepo, logger)
	valuationSvc := valuation.NewService(assetRepo, ledgerSvc, provider,
		cfg.Provider.Timeout, cfg.Provider.CacheTTL, logger)
	simulationSvc := simulation.NewService(ledgerSvc, valuationSvc)
	scheduler := snapshot.NewScheduler(valuationSvc, snapshotRepo, snapshotLogRepo, settingsRepo,
		cfg.Snapshot.DefaultIntervalMinutes, cfg.Snapshot.TickTimeout, logger)

	return &App{
		Ledger:     ledgerSvc,
		Valuation:  valuationSvc,
		Simulation: simulationSvc,
		Scheduler:  scheduler,
	}
}
