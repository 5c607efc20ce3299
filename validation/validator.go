package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"quant-warehouse/config"
	"quant-warehouse/ingest"
)

// Options holds the soft data-quality thresholds
type Options struct {
	MinVolume         int64
	MaxPriceChangePct float64
}

// OptionsFromConfig extracts validation thresholds from the pipeline configuration
func OptionsFromConfig(p config.PipelineConfig) Options {
	return Options{MinVolume: p.MinVolume, MaxPriceChangePct: p.MaxPriceChangePct}
}

// Validator checks batches for schema and semantic integrity. It never touches storage.
type Validator struct {
	v    *validator.Validate
	opts Options
	log  *zap.Logger
}

// New creates a validator. Field names in issues are the source column names.
func New(opts Options, log *zap.Logger) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("csv"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return &Validator{v: v, opts: opts, log: log.With(zap.String("component", "validator"))}
}

type cellKey struct {
	dataset ingest.Dataset
	row     int
	column  string
}

// Validate returns the report for a batch
func (v *Validator) Validate(b *ingest.Batch) *Report {
	c := newCollector()

	malformed := make(map[cellKey]bool, len(b.Malformed))
	for _, m := range b.Malformed {
		c.errorf(m.Dataset, "malformed", m.Column, m.Row, m.Value, "%s.%s has values that cannot be parsed", m.Dataset, m.Column)
		malformed[cellKey{m.Dataset, m.Row, m.Column}] = true
	}

	symbolIDs := make(map[int64]bool, len(b.Symbols))
	symbolsOK := v.hasColumns(c, b, ingest.DatasetSymbols)
	if symbolsOK {
		v.validateSymbols(c, b.Symbols, malformed)
		for _, s := range b.Symbols {
			if s.SymbolID != nil {
				symbolIDs[*s.SymbolID] = true
			}
		}
	}
	if v.hasColumns(c, b, ingest.DatasetBars) {
		v.validateBars(c, b.Bars, malformed, symbolIDs, symbolsOK)
	}
	if v.hasColumns(c, b, ingest.DatasetTrades) {
		v.validateTrades(c, b.Trades, malformed, symbolIDs, symbolsOK)
	}
	if v.hasColumns(c, b, ingest.DatasetNews) {
		for i := range b.News {
			v.checkStruct(c, ingest.DatasetNews, i, &b.News[i], malformed)
		}
	}
	if v.hasColumns(c, b, ingest.DatasetYields) {
		v.validateYields(c, b.Yields, malformed)
	}

	report := c.report()
	for _, w := range report.Warnings {
		v.log.Warn("Data quality warning", zap.String("dataset", string(w.Dataset)), zap.String("rule", w.Rule), zap.String("detail", w.String()))
	}
	v.log.Info("Batch validated",
		zap.Bool("valid", report.Valid()),
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("symbols", len(b.Symbols)),
		zap.Int("bars", len(b.Bars)),
		zap.Int("trades", len(b.Trades)),
	)
	return report
}

// hasColumns reports missing required columns. Datasets without declared columns skip the check.
func (v *Validator) hasColumns(c *collector, b *ingest.Batch, ds ingest.Dataset) bool {
	cols, declared := b.Columns[ds]
	if !declared {
		return true
	}
	present := make(map[string]bool, len(cols))
	for _, col := range cols {
		present[col] = true
	}
	ok := true
	for _, col := range ingest.RequiredColumns[ds] {
		if !present[col] {
			c.errorf(ds, "missing_column", col, -1, nil, "missing required column %s.%s", ds, col)
			ok = false
		}
	}
	return ok
}

// checkStruct applies the validate tags of one record
func (v *Validator) checkStruct(c *collector, ds ingest.Dataset, row int, rec interface{}, malformed map[cellKey]bool) {
	err := v.v.Struct(rec)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.errorf(ds, "invalid", "", row, nil, "%s record is invalid: %v", ds, err)
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		// Unparseable cells are already reported as malformed
		if fe.Tag() == "required" && malformed[cellKey{ds, row, field}] {
			continue
		}
		c.add(SeverityError, ds, fe.Tag(), field, describe(ds, fe), row, fe.Value())
	}
}

func describe(ds ingest.Dataset, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("NULL values in %s.%s", ds, fe.Field())
	case "finite":
		return fmt.Sprintf("%s.%s has NaN or infinite values", ds, fe.Field())
	case "gt":
		return fmt.Sprintf("%s.%s must be greater than %s", ds, fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s.%s must be at least %s", ds, fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s.%s must be at most %s", ds, fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid %s.%s, allowed: %s", ds, fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s.%s failed rule %s", ds, fe.Field(), fe.Tag())
	}
}

func (v *Validator) validateSymbols(c *collector, symbols []ingest.RawSymbol, malformed map[cellKey]bool) {
	tickers := make(map[string]bool, len(symbols))
	ids := make(map[int64]bool, len(symbols))
	for i := range symbols {
		s := &symbols[i]
		v.checkStruct(c, ingest.DatasetSymbols, i, s, malformed)

		if s.Ticker != nil {
			if tickers[*s.Ticker] {
				c.errorf(ingest.DatasetSymbols, "duplicate", "ticker", i, *s.Ticker, "duplicate tickers found")
			}
			tickers[*s.Ticker] = true
		}
		if s.SymbolID != nil {
			if ids[*s.SymbolID] {
				c.errorf(ingest.DatasetSymbols, "duplicate", "symbol_id", i, *s.SymbolID, "duplicate symbol_id values found")
			}
			ids[*s.SymbolID] = true
		}
	}
}

type barKey struct {
	symbolID int64
	ts       int64
}

func (v *Validator) validateBars(c *collector, bars []ingest.RawBar, malformed map[cellKey]bool, symbolIDs map[int64]bool, checkRefs bool) {
	const ds = ingest.DatasetBars
	seen := make(map[barKey]bool, len(bars))
	bySymbol := make(map[int64][]int)

	for i := range bars {
		bar := &bars[i]
		v.checkStruct(c, ds, i, bar, malformed)

		if bar.SymbolID != nil && bar.Ts != nil {
			key := barKey{*bar.SymbolID, bar.Ts.UnixNano()}
			if seen[key] {
				c.errorf(ds, "duplicate", "ts", i, *bar.Ts, "duplicate (symbol_id, ts) bars found")
			}
			seen[key] = true
			if bar.Close != nil {
				bySymbol[*bar.SymbolID] = append(bySymbol[*bar.SymbolID], i)
			}
		}
		if checkRefs && bar.SymbolID != nil && !symbolIDs[*bar.SymbolID] {
			c.errorf(ds, "unknown_symbol", "symbol_id", i, *bar.SymbolID, "bars reference symbol_id missing from symbols")
		}

		if bar.Open != nil && bar.High != nil && bar.Low != nil && bar.Close != nil {
			if *bar.High < *bar.Open {
				c.warnf(ds, "high_below_open", "high", i, nil, "High < Open")
			}
			if *bar.High < *bar.Close {
				c.warnf(ds, "high_below_close", "high", i, nil, "High < Close")
			}
			if *bar.Low > *bar.Open {
				c.warnf(ds, "low_above_open", "low", i, nil, "Low > Open")
			}
			if *bar.Low > *bar.Close {
				c.warnf(ds, "low_above_close", "low", i, nil, "Low > Close")
			}
		}
		if bar.Volume != nil && *bar.Volume >= 0 && *bar.Volume < v.opts.MinVolume {
			c.warnf(ds, "low_volume", "volume", i, nil, "volume below %d", v.opts.MinVolume)
		}
	}

	// Extreme close-to-close moves, per symbol in time order
	ids := make([]int64, 0, len(bySymbol))
	for id := range bySymbol {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		rows := bySymbol[id]
		sort.SliceStable(rows, func(i, j int) bool { return bars[rows[i]].Ts.Before(*bars[rows[j]].Ts) })
		for k := 1; k < len(rows); k++ {
			prev, cur := *bars[rows[k-1]].Close, *bars[rows[k]].Close
			if prev <= 0 {
				continue
			}
			change := math.Abs((cur - prev) / prev * 100)
			if change > v.opts.MaxPriceChangePct {
				c.warnf(ds, "extreme_price_change", "close", rows[k], fmt.Sprintf("%.2f%%", change),
					"close-to-close change above %g%%", v.opts.MaxPriceChangePct)
			}
		}
	}
}

func (v *Validator) validateTrades(c *collector, trades []ingest.RawTrade, malformed map[cellKey]bool, symbolIDs map[int64]bool, checkRefs bool) {
	for i := range trades {
		t := &trades[i]
		v.checkStruct(c, ingest.DatasetTrades, i, t, malformed)
		if checkRefs && t.SymbolID != nil && !symbolIDs[*t.SymbolID] {
			c.warnf(ingest.DatasetTrades, "unknown_symbol", "symbol_id", i, *t.SymbolID, "trades reference symbol_id missing from symbols")
		}
	}
}

type yieldKey struct {
	ts       int64
	maturity string
}

func (v *Validator) validateYields(c *collector, yields []ingest.RawYield, malformed map[cellKey]bool) {
	seen := make(map[yieldKey]bool, len(yields))
	for i := range yields {
		y := &yields[i]
		v.checkStruct(c, ingest.DatasetYields, i, y, malformed)
		if y.Ts != nil && y.Maturity != nil {
			key := yieldKey{y.Ts.UnixNano(), strings.ToUpper(strings.TrimSpace(*y.Maturity))}
			if seen[key] {
				c.errorf(ingest.DatasetYields, "duplicate", "ts", i, *y.Maturity, "duplicate (ts, maturity) yields found")
			}
			seen[key] = true
		}
	}
}
