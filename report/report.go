// Package report renders a finished (or in-progress) session to a
// self-contained HTML chart: the replayed candles, the executed trades and
// the equity curve.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/rustyeddy/papertrade/pricing"
	"github.com/rustyeddy/papertrade/session"
)

// Render writes an HTML report for snap over the visible bars (bars at or
// before the cursor, as returned by Session.VisibleBars).
func Render(w io.Writer, snap session.Snapshot, bars []pricing.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("report: no bars to render")
	}

	x := make([]string, len(bars))
	kline := make([]opts.KlineData, len(bars))
	for i, b := range bars {
		x[i] = b.Time.UTC().Format(time.RFC3339)
		kline[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
	}

	// Trade markers aligned to the bar axis; "-" renders as a gap.
	buys := make([]opts.ScatterData, len(bars))
	sells := make([]opts.ScatterData, len(bars))
	for i := range bars {
		buys[i] = opts.ScatterData{Value: "-"}
		sells[i] = opts.ScatterData{Value: "-"}
	}
	for _, tr := range snap.Trades {
		if tr.Cursor < 0 || tr.Cursor >= len(bars) {
			continue
		}
		d := opts.ScatterData{Value: tr.Price, Symbol: "triangle", SymbolSize: 12}
		switch tr.Side {
		case session.Buy:
			buys[tr.Cursor] = d
		case session.Sell:
			d.SymbolRotate = 180
			sells[tr.Cursor] = d
		}
	}

	equity := equityCurve(snap, bars)
	line := make([]opts.LineData, len(equity))
	for i, v := range equity {
		line[i] = opts.LineData{Value: v}
	}

	chart := charts.NewKLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("papertrade %s", snap.Symbol),
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s %s — equity %.2f (start %.2f)",
				snap.Symbol, snap.Timeframe, snap.Equity, snap.StartingCapital),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	chart.SetXAxis(x).AddSeries(snap.Symbol, kline)

	buyScatter := charts.NewScatter()
	buyScatter.SetXAxis(x).AddSeries("BUY", buys)
	sellScatter := charts.NewScatter()
	sellScatter.SetXAxis(x).AddSeries("SELL", sells)

	equityLine := charts.NewLine()
	equityLine.SetXAxis(x).AddSeries("equity", line)

	chart.Overlap(buyScatter, sellScatter, equityLine)
	return chart.Render(w)
}

// RenderFile writes the report to path.
func RenderFile(path string, snap session.Snapshot, bars []pricing.Bar) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(file, snap, bars); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// equityCurve computes cash + position value at each bar, applying the
// session's trades in order at the bars they executed on.
func equityCurve(snap session.Snapshot, bars []pricing.Bar) []float64 {
	cash := snap.StartingCapital
	qty := 0.0

	// Trades grouped by execution bar; within a bar they stay in arrival
	// order, matching how the ledger applied them.
	byCursor := make(map[int][]session.Trade, len(snap.Trades))
	for _, tr := range snap.Trades {
		byCursor[tr.Cursor] = append(byCursor[tr.Cursor], tr)
	}

	out := make([]float64, len(bars))
	for i, b := range bars {
		for _, tr := range byCursor[i] {
			switch tr.Side {
			case session.Buy:
				cash -= tr.Price * tr.Qty
				qty += tr.Qty
			case session.Sell:
				cash += tr.Price * tr.Qty
				qty -= tr.Qty
			}
		}
		out[i] = cash + qty*b.Close
	}
	return out
}
