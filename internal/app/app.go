// Package app wires the services shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/tally/internal/balance"
	balanceStore "github.com/MrJamesThe3rd/tally/internal/balance/store"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categoryStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

type Services struct {
	DB           *sql.DB
	Transactions *transaction.Service
	Categories   *category.Service
	Balances     *balance.Service
	Importer     *importer.Service
	Reconciler   *reconcile.Service
}

// Open connects to the database, applies the schema when configured to and builds every service.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	rules, err := category.LoadRules(cfg.Category.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load category rules: %w", err)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	providers := importer.Providers{Card: cfg.Import.CardProvider, Bank: cfg.Import.BankProvider}

	var (
		transactionService = transaction.NewService(txStore.New(db))
		balanceService     = balance.NewService(balanceStore.New(db))
		categoryService    = category.NewService(categoryStore.New(db), rules, category.Defaults{
			Expense:      cfg.Category.DefaultExpense,
			Income:       cfg.Category.DefaultIncome,
			TransferSlug: cfg.Category.TransferSlug,
		})
	)

	reconcileService := reconcile.NewService(transactionService, categoryService, balanceService, reconcile.Config{
		Providers: providers,
		Markers: map[importer.Dialect]string{
			importer.DialectCard: cfg.Import.CardMarker,
			importer.DialectBank: cfg.Import.BankMarker,
		},
		LinkConcurrency: cfg.Import.LinkConcurrency,
	}, logger)

	return &Services{
		DB:           db,
		Transactions: transactionService,
		Categories:   categoryService,
		Balances:     balanceService,
		Importer:     importer.NewService(providers, categoryService, logger),
		Reconciler:   reconcileService,
	}, nil
}

func (s *Services) Close() error {
	return s.DB.Close()
}
