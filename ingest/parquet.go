package ingest

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ParquetReader reads <dataset>.parquet files. Timestamps are stored as int64 Unix milliseconds.
type ParquetReader struct{}

func (ParquetReader) Extension() string { return "parquet" }

// Parquet row layouts. Every column is optional so that nulls survive to validation.
type (
	SymbolRow struct {
		SymbolID  *int64  `parquet:"symbol_id,optional"`
		Ticker    *string `parquet:"ticker,optional"`
		Name      *string `parquet:"name,optional"`
		Sector    *string `parquet:"sector,optional"`
		Industry  *string `parquet:"industry,optional"`
		MarketCap *int64  `parquet:"market_cap,optional"`
		Exchange  *string `parquet:"exchange,optional"`
		Currency  *string `parquet:"currency,optional"`
	}

	BarRow struct {
		SymbolID *int64   `parquet:"symbol_id,optional"`
		Ts       *int64   `parquet:"ts,optional"`
		Open     *float64 `parquet:"open,optional"`
		High     *float64 `parquet:"high,optional"`
		Low      *float64 `parquet:"low,optional"`
		Close    *float64 `parquet:"close,optional"`
		Volume   *int64   `parquet:"volume,optional"`
	}

	TradeRow struct {
		SymbolID *int64   `parquet:"symbol_id,optional"`
		Ts       *int64   `parquet:"ts,optional"`
		Price    *float64 `parquet:"price,optional"`
		Size     *int64   `parquet:"size,optional"`
		Side     *string  `parquet:"side,optional"`
	}

	NewsRow struct {
		NewsID     *int64   `parquet:"news_id,optional"`
		Ts         *int64   `parquet:"ts,optional"`
		Headline   *string  `parquet:"headline,optional"`
		Source     *string  `parquet:"source,optional"`
		Score      *float64 `parquet:"sentiment_score,optional"`
		Label      *string  `parquet:"sentiment_label,optional"`
		HighImpact *bool    `parquet:"is_high_impact,optional"`
	}

	YieldRow struct {
		Ts        *int64   `parquet:"ts,optional"`
		Maturity  *string  `parquet:"maturity,optional"`
		YieldRate *float64 `parquet:"yield_rate,optional"`
		Source    *string  `parquet:"source,optional"`
	}
)

func (r ParquetReader) Read(ctx context.Context, dir string) (*Batch, error) {
	b := &Batch{Columns: make(map[Dataset][]string)}

	for _, ds := range []Dataset{DatasetSymbols, DatasetBars, DatasetTrades, DatasetNews, DatasetYields} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := datasetPath(dir, ds, r.Extension())
		if err != nil {
			return nil, err
		}
		if path == "" {
			continue
		}

		cols, err := parquetColumns(path)
		if err != nil {
			return nil, err
		}
		b.Columns[ds] = cols

		switch ds {
		case DatasetSymbols:
			rows, err := parquet.ReadFile[SymbolRow](path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			for _, row := range rows {
				b.Symbols = append(b.Symbols, RawSymbol(row))
			}
		case DatasetBars:
			rows, err := parquet.ReadFile[BarRow](path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			for i, row := range rows {
				b.Bars = append(b.Bars, RawBar{
					SymbolID: row.SymbolID, Ts: fromMillis(row.Ts),
					Open:   b.finite(ds, i, "open", row.Open),
					High:   b.finite(ds, i, "high", row.High),
					Low:    b.finite(ds, i, "low", row.Low),
					Close:  b.finite(ds, i, "close", row.Close),
					Volume: row.Volume,
				})
			}
		case DatasetTrades:
			rows, err := parquet.ReadFile[TradeRow](path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			for i, row := range rows {
				b.Trades = append(b.Trades, RawTrade{
					SymbolID: row.SymbolID, Ts: fromMillis(row.Ts),
					Price: b.finite(ds, i, "price", row.Price), Size: row.Size, Side: upperPtr(row.Side),
				})
			}
		case DatasetNews:
			rows, err := parquet.ReadFile[NewsRow](path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			for i, row := range rows {
				b.News = append(b.News, RawNews{
					NewsID: row.NewsID, Ts: fromMillis(row.Ts), Headline: row.Headline, Source: row.Source,
					Score: b.finite(ds, i, "sentiment_score", row.Score), Label: row.Label, HighImpact: row.HighImpact,
				})
			}
		case DatasetYields:
			rows, err := parquet.ReadFile[YieldRow](path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			for i, row := range rows {
				b.Yields = append(b.Yields, RawYield{
					Ts: fromMillis(row.Ts), Maturity: row.Maturity, YieldRate: b.finite(ds, i, "yield_rate", row.YieldRate), Source: row.Source,
				})
			}
		}
	}
	return b, nil
}

// parquetColumns returns the top-level column names declared by the file schema
func parquetColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	fields := pf.Schema().Fields()
	cols := make([]string, 0, len(fields))
	for _, field := range fields {
		cols = append(cols, strings.ToLower(field.Name()))
	}
	return cols, nil
}

// finite passes v through unless it is NaN or Inf, which is recorded as a malformed cell
func (b *Batch) finite(ds Dataset, row int, col string, v *float64) *float64 {
	if v == nil || (!math.IsNaN(*v) && !math.IsInf(*v, 0)) {
		return v
	}
	b.Malformed = append(b.Malformed, CellError{
		Dataset: ds, Row: row, Column: col,
		Value: strconv.FormatFloat(*v, 'g', -1, 64), Err: ErrNonFinite,
	})
	return nil
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func upperPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	return &v
}
