package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVReader reads <dataset>.csv files with a header row. Empty cells are nulls.
type CSVReader struct{}

func (CSVReader) Extension() string { return "csv" }

func (r CSVReader) Read(ctx context.Context, dir string) (*Batch, error) {
	b := &Batch{Columns: make(map[Dataset][]string)}

	for _, ds := range []Dataset{DatasetSymbols, DatasetBars, DatasetTrades, DatasetNews, DatasetYields} {
		path, err := datasetPath(dir, ds, r.Extension())
		if err != nil {
			return nil, err
		}
		if path == "" {
			continue
		}
		if err := readCSVFile(ctx, path, ds, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func readCSVFile(ctx context.Context, path string, ds Dataset, b *Batch) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		b.Columns[ds] = []string{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	b.Columns[ds] = header

	c := &cursor{ds: ds, index: make(map[string]int, len(header)), malformed: &b.Malformed}
	for i, name := range header {
		c.index[name] = i
	}

	for row := 0; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s row %d: %w", path, row+1, err)
		}
		c.row, c.rec = row, rec

		switch ds {
		case DatasetSymbols:
			b.Symbols = append(b.Symbols, RawSymbol{
				SymbolID:  c.int64("symbol_id"),
				Ticker:    c.str("ticker"),
				Name:      c.str("name"),
				Sector:    c.str("sector"),
				Industry:  c.str("industry"),
				MarketCap: c.int64("market_cap"),
				Exchange:  c.str("exchange"),
				Currency:  c.str("currency"),
			})
		case DatasetBars:
			b.Bars = append(b.Bars, RawBar{
				SymbolID: c.int64("symbol_id"),
				Ts:       c.time("ts"),
				Open:     c.float("open"),
				High:     c.float("high"),
				Low:      c.float("low"),
				Close:    c.float("close"),
				Volume:   c.int64("volume"),
			})
		case DatasetTrades:
			b.Trades = append(b.Trades, RawTrade{
				SymbolID: c.int64("symbol_id"),
				Ts:       c.time("ts"),
				Price:    c.float("price"),
				Size:     c.int64("size"),
				Side:     c.upper("side"),
			})
		case DatasetNews:
			b.News = append(b.News, RawNews{
				NewsID:     c.int64("news_id"),
				Ts:         c.time("ts"),
				Headline:   c.str("headline"),
				Source:     c.str("source"),
				Score:      c.float("sentiment_score"),
				Label:      c.str("sentiment_label"),
				HighImpact: c.bool("is_high_impact"),
			})
		case DatasetYields:
			b.Yields = append(b.Yields, RawYield{
				Ts:        c.time("ts"),
				Maturity:  c.str("maturity"),
				YieldRate: c.float("yield_rate"),
				Source:    c.str("source"),
			})
		}
	}
	return nil
}

// cursor decodes typed cells from the current CSV record
type cursor struct {
	ds        Dataset
	index     map[string]int
	row       int
	rec       []string
	malformed *[]CellError
}

func (c *cursor) raw(col string) (string, bool) {
	i, ok := c.index[col]
	if !ok || i >= len(c.rec) {
		return "", false
	}
	v := strings.TrimSpace(c.rec[i])
	if v == "" {
		return "", false
	}
	return v, true
}

func (c *cursor) bad(col, value string, err error) {
	*c.malformed = append(*c.malformed, CellError{Dataset: c.ds, Row: c.row, Column: col, Value: value, Err: err})
}

func (c *cursor) str(col string) *string {
	v, ok := c.raw(col)
	if !ok {
		return nil
	}
	return &v
}

// upper reads enum columns case-insensitively
func (c *cursor) upper(col string) *string {
	v, ok := c.raw(col)
	if !ok {
		return nil
	}
	v = strings.ToUpper(v)
	return &v
}

func (c *cursor) int64(col string) *int64 {
	v, ok := c.raw(col)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Accept integral floats such as "1200000.0"
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != float64(int64(f)) {
			c.bad(col, v, err)
			return nil
		}
		n = int64(f)
	}
	return &n
}

func (c *cursor) float(col string) *float64 {
	v, ok := c.raw(col)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.bad(col, v, err)
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		c.bad(col, v, ErrNonFinite)
		return nil
	}
	return &f
}

func (c *cursor) bool(col string) *bool {
	v, ok := c.raw(col)
	if !ok {
		return nil
	}
	bv, err := strconv.ParseBool(v)
	if err != nil {
		c.bad(col, v, err)
		return nil
	}
	return &bv
}

func (c *cursor) time(col string) *time.Time {
	v, ok := c.raw(col)
	if !ok {
		return nil
	}
	t, err := ParseTimestamp(v)
	if err != nil {
		c.bad(col, v, err)
		return nil
	}
	return &t
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp layouts accepted in source files. Values without a zone
// are read as UTC.
func ParseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
