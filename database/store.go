package database

import (
	"context"

	models "quant-warehouse/database/models_pkg"
)

// Store is the single-writer side of the warehouse used by the pipeline
type Store interface {
	// InitSchema applies the schema; safe to call on every run
	InitSchema(ctx context.Context) error

	// WithinTx runs fn in one transaction. It commits only when fn returns nil and rolls back on
	// error or panic.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a pipeline transaction
type Tx interface {
	ReplaceSymbols(ctx context.Context, rows []models.Symbol) error
	ReplaceBars(ctx context.Context, rows []models.Bar) error
	ReplaceTrades(ctx context.Context, rows []models.Trade) error
	ReplaceNewsSentiment(ctx context.Context, rows []models.NewsSentiment) error
	ReplaceTreasuryYields(ctx context.Context, rows []models.TreasuryYield) error

	// Readers return rows in storage order: bars and trades by (symbol_id, ts),
	// news by ts, yields by (maturity, ts)
	Symbols(ctx context.Context) ([]models.Symbol, error)
	Bars(ctx context.Context) ([]models.Bar, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	NewsSentiment(ctx context.Context) ([]models.NewsSentiment, error)
	TreasuryYields(ctx context.Context) ([]models.TreasuryYield, error)

	// ReplaceDerived swaps every derived table for the contents of fs
	ReplaceDerived(ctx context.Context, fs *models.FeatureSet) error

	SaveRun(ctx context.Context, run *models.PipelineRun) error
}
