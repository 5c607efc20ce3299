package database

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	models "quant-warehouse/database/models_pkg"
)

// maxBindParams stays below PostgreSQL's 65535 bind parameter limit per statement
const maxBindParams = 60000

// Warehouse is the GORM implementation of Store
type Warehouse struct {
	db        *gorm.DB
	batchSize int
	log       *zap.Logger
}

// NewWarehouse creates a warehouse store. batchSize caps rows per INSERT.
func NewWarehouse(db *gorm.DB, batchSize int, log *zap.Logger) *Warehouse {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Warehouse{db: db, batchSize: batchSize, log: log.With(zap.String("component", "warehouse"))}
}

// InitSchema performs auto-migration and creates the query indexes
func (w *Warehouse) InitSchema(ctx context.Context) error {
	db := w.db.WithContext(ctx)

	err := db.AutoMigrate(
		&models.Symbol{},
		&models.Bar{},
		&models.Trade{},
		&models.NewsSentiment{},
		&models.TreasuryYield{},
		&models.FeatureReturnsRSI{},
		&models.FeatureVWAPVolume{},
		&models.DailyMetric{},
		&models.StockCorrelation{},
		&models.SentimentSignal{},
		&models.MarketEvent{},
		&models.SentimentAggregate{},
		&models.PipelineRun{},
	)
	if err != nil {
		return WrapDBError("AutoMigrate", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_bars_ts ON bars (ts)`,
		`CREATE INDEX IF NOT EXISTS idx_features_rsi_ts ON features_returns_rsi (ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_features_rsi_signal ON features_returns_rsi (rsi_signal) WHERE rsi_signal <> 'NEUTRAL'`,
		`CREATE INDEX IF NOT EXISTS idx_features_vwap_ts ON features_vwap_volume (ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_metrics_date ON daily_metrics (date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_market_events_maturity ON market_events (maturity, ts)`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return WrapDBError("CreateIndex", err)
		}
	}

	w.log.Debug("Schema initialised")
	return nil
}

// WithinTx runs fn inside a GORM transaction. GORM rolls back on error and on panic.
func (w *Warehouse) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return w.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&warehouseTx{db: db, batchSize: w.batchSize})
	})
}

// warehouseTx implements Tx on an open GORM transaction
type warehouseTx struct {
	db        *gorm.DB
	batchSize int
}

// replaceTable deletes every row of T's table and inserts rows in batches.
// columns sizes the batch so a single INSERT stays within the bind parameter limit.
func replaceTable[T any](ctx context.Context, db *gorm.DB, batchSize, columns int, rows []T) error {
	var model T
	db = db.WithContext(ctx)

	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model).Error; err != nil {
		return WrapDBError(fmt.Sprintf("Delete %T", model), err)
	}
	if len(rows) == 0 {
		return nil
	}

	size := batchSize
	if columns > 0 && size*columns > maxBindParams {
		size = maxBindParams / columns
	}
	if err := db.CreateInBatches(rows, size).Error; err != nil {
		return WrapDBError(fmt.Sprintf("Insert %T", model), err)
	}
	return nil
}

func (t *warehouseTx) ReplaceSymbols(ctx context.Context, rows []models.Symbol) error {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].SymbolID < rows[j].SymbolID })
	return replaceTable(ctx, t.db, t.batchSize, 8, rows)
}

func (t *warehouseTx) ReplaceBars(ctx context.Context, rows []models.Bar) error {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SymbolID != rows[j].SymbolID {
			return rows[i].SymbolID < rows[j].SymbolID
		}
		return rows[i].Ts.Before(rows[j].Ts)
	})
	return replaceTable(ctx, t.db, t.batchSize, 7, rows)
}

func (t *warehouseTx) ReplaceTrades(ctx context.Context, rows []models.Trade) error {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SymbolID != rows[j].SymbolID {
			return rows[i].SymbolID < rows[j].SymbolID
		}
		return rows[i].Ts.Before(rows[j].Ts)
	})
	return replaceTable(ctx, t.db, t.batchSize, 6, rows)
}

func (t *warehouseTx) ReplaceNewsSentiment(ctx context.Context, rows []models.NewsSentiment) error {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ts.Before(rows[j].Ts) })
	return replaceTable(ctx, t.db, t.batchSize, 8, rows)
}

func (t *warehouseTx) ReplaceTreasuryYields(ctx context.Context, rows []models.TreasuryYield) error {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Maturity != rows[j].Maturity {
			return rows[i].Maturity < rows[j].Maturity
		}
		return rows[i].Ts.Before(rows[j].Ts)
	})
	return replaceTable(ctx, t.db, t.batchSize, 4, rows)
}

func (t *warehouseTx) Symbols(ctx context.Context) ([]models.Symbol, error) {
	var rows []models.Symbol
	if err := t.db.WithContext(ctx).Order("symbol_id").Find(&rows).Error; err != nil {
		return nil, WrapDBError("Symbols", err)
	}
	return rows, nil
}

func (t *warehouseTx) Bars(ctx context.Context) ([]models.Bar, error) {
	var rows []models.Bar
	if err := t.db.WithContext(ctx).Order("symbol_id, ts").Find(&rows).Error; err != nil {
		return nil, WrapDBError("Bars", err)
	}
	return rows, nil
}

func (t *warehouseTx) Trades(ctx context.Context) ([]models.Trade, error) {
	var rows []models.Trade
	if err := t.db.WithContext(ctx).Order("symbol_id, ts, id").Find(&rows).Error; err != nil {
		return nil, WrapDBError("Trades", err)
	}
	return rows, nil
}

func (t *warehouseTx) NewsSentiment(ctx context.Context) ([]models.NewsSentiment, error) {
	var rows []models.NewsSentiment
	if err := t.db.WithContext(ctx).Order("ts, id").Find(&rows).Error; err != nil {
		return nil, WrapDBError("NewsSentiment", err)
	}
	return rows, nil
}

func (t *warehouseTx) TreasuryYields(ctx context.Context) ([]models.TreasuryYield, error) {
	var rows []models.TreasuryYield
	if err := t.db.WithContext(ctx).Order("maturity, ts").Find(&rows).Error; err != nil {
		return nil, WrapDBError("TreasuryYields", err)
	}
	return rows, nil
}

func (t *warehouseTx) ReplaceDerived(ctx context.Context, fs *models.FeatureSet) error {
	if err := replaceTable(ctx, t.db, t.batchSize, 10, fs.ReturnsRSI); err != nil {
		return err
	}
	if err := replaceTable(ctx, t.db, t.batchSize, 12, fs.VWAPVolume); err != nil {
		return err
	}
	if err := replaceTable(ctx, t.db, t.batchSize, 15, fs.Daily); err != nil {
		return err
	}
	if err := replaceTable(ctx, t.db, t.batchSize, 4, fs.Correlations); err != nil {
		return err
	}
	if err := replaceTable(ctx, t.db, t.batchSize, 6, fs.Signals); err != nil {
		return err
	}
	if err := replaceTable(ctx, t.db, t.batchSize, 7, fs.MarketEvents); err != nil {
		return err
	}
	return replaceTable(ctx, t.db, t.batchSize, 6, fs.SentimentAggregates)
}

func (t *warehouseTx) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	if err := t.db.WithContext(ctx).Create(run).Error; err != nil {
		return WrapDBError("SaveRun", err)
	}
	return nil
}
