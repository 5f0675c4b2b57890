package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/pricing"
	"github.com/rustyeddy/papertrade/session"
)

func reportBars(n int) []pricing.Bar {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]pricing.Bar, n)
	for i := range bars {
		px := 100.0 + float64(i)
		bars[i] = pricing.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   px - 0.5,
			High:   px + 1,
			Low:    px - 1,
			Close:  px,
			Volume: 1000,
		}
	}
	return bars
}

func TestRender(t *testing.T) {
	t.Parallel()

	bars := reportBars(10)
	snap := session.Snapshot{
		SessionID:       "sess-report",
		Symbol:          "AAPL",
		Timeframe:       "1h",
		Cursor:          9,
		Bar:             bars[9],
		Cash:            8500,
		StartingCapital: 10000,
		Trades: []session.Trade{
			{ID: "t1", Side: session.Buy, Price: 103, Qty: 10, Cursor: 3, Time: bars[3].Time},
			{ID: "t2", Side: session.Sell, Price: 107, Qty: 5, Cursor: 7, Time: bars[7].Time, RealizedPL: 20},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, snap, bars))

	html := buf.String()
	assert.Contains(t, html, "AAPL")
	assert.Contains(t, html, "BUY")
	assert.Contains(t, html, "SELL")
	assert.Contains(t, html, "equity")
}

func TestRenderNoBars(t *testing.T) {
	t.Parallel()

	err := Render(&bytes.Buffer{}, session.Snapshot{}, nil)
	assert.Error(t, err)
}

func TestEquityCurve(t *testing.T) {
	t.Parallel()

	bars := reportBars(6)
	snap := session.Snapshot{
		StartingCapital: 10000,
		Trades: []session.Trade{
			{Side: session.Buy, Price: 102, Qty: 10, Cursor: 2},
			{Side: session.Sell, Price: 104, Qty: 10, Cursor: 4},
		},
	}

	curve := equityCurve(snap, bars)
	require.Len(t, curve, 6)

	// Flat before the buy.
	assert.Equal(t, 10000.0, curve[0])
	assert.Equal(t, 10000.0, curve[1])
	// Long 10 from bar 2: cash 8980, equity marks to each close.
	assert.Equal(t, 8980.0+10*102, curve[2])
	assert.Equal(t, 8980.0+10*103, curve[3])
	// Flat again after the sell, 20 realized.
	assert.Equal(t, 10020.0, curve[4])
	assert.Equal(t, 10020.0, curve[5])
}
