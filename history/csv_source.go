package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/papertrade/pricing"
)

// CSVSource serves bars from per-symbol CSV files in a data directory,
// named <SYMBOL>_<timeframe>.csv (e.g. AAPL_1h.csv).
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) (*CSVSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %q is not a directory", dir)
	}
	return &CSVSource{dir: dir}, nil
}

func (s *CSVSource) path(symbol string, tf pricing.Timeframe) string {
	name := fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), tf.Key)
	return filepath.Join(s.dir, name)
}

func (s *CSVSource) Bars(ctx context.Context, symbol string, tf pricing.Timeframe, start, end time.Time) ([]pricing.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.path(symbol, tf)
	bars, err := pricing.LoadCSV(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // no file means no data, not a source failure
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	var out []pricing.Bar
	for _, b := range bars {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
