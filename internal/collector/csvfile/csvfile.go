package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/crossover/internal/collector"
	"github.com/newthinker/crossover/internal/core"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CSVFile reads bars from a file with rows of timestamp,close[,symbol].
// A leading header row is skipped. Rows without a symbol column belong to
// whichever symbol is requested.
type CSVFile struct {
	path   string
	logger *zap.Logger
}

// New creates a collector reading cfg.Path
func New(cfg collector.Config, logger ...*zap.Logger) *CSVFile {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &CSVFile{path: cfg.Path, logger: l}
}

func (c *CSVFile) Name() string {
	return "csv"
}

// FetchBars returns the last limit bars of symbol in the file
func (c *CSVFile) FetchBars(ctx context.Context, symbol, timeframe string, limit int) (core.BarSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.path == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("csv data path not set"))
	}

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", c.path, err)
	}
	defer f.Close()

	series, err := Parse(f, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}

	series = series.Sorted().Last(limit)
	c.logger.Debug("bars loaded",
		zap.String("path", c.path),
		zap.String("symbol", symbol),
		zap.Int("count", len(series)),
	)
	return series, nil
}

// Parse decodes rows of timestamp,close[,symbol] and keeps those for symbol.
func Parse(r io.Reader, symbol, timeframe string) (core.BarSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var series core.BarSeries
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 columns, got %d", line, len(record))
		}

		ts, err := parseTime(record[0])
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		closePrice, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid close %q", line, record[1])
		}

		rowSymbol := symbol
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			rowSymbol = strings.TrimSpace(record[2])
		}
		if !strings.EqualFold(rowSymbol, symbol) {
			continue
		}

		series = append(series, core.Bar{
			Symbol:   symbol,
			Interval: timeframe,
			Open:     closePrice,
			High:     closePrice,
			Low:      closePrice,
			Close:    closePrice,
			Time:     ts,
		})
	}

	return series, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
