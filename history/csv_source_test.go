package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/pricing"
)

func TestCSVSource_Bars(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csv := `time,open,high,low,close,volume
2025-02-03T00:00:00Z,100,101,99,100.5,1200
2025-02-03T01:00:00Z,100.5,102,100,101.5,900
2025-02-03T02:00:00Z,101.5,103,101,102,1100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_1h.csv"), []byte(csv), 0o644))

	src, err := NewCSVSource(dir)
	require.NoError(t, err)

	tf, err := pricing.ParseTimeframe("1h")
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	bars, err := src.Bars(ctx, "aapl", tf, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.InDelta(t, 100.5, bars[0].Close, 1e-9)
	assert.InDelta(t, 1100, bars[2].Volume, 1e-9)

	// Range filter is inclusive on both ends.
	bars, err = src.Bars(ctx, "AAPL", tf, start.Add(time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.InDelta(t, 101.5, bars[0].Close, 1e-9)

	// Missing symbol file: no data, no error.
	bars, err = src.Bars(ctx, "MSFT", tf, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, bars)
}
