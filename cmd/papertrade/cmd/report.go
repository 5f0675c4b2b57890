package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/history"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/pricing"
	"github.com/rustyeddy/papertrade/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [session id]",
	Short: "Render a stored session to an HTML chart",
	Long: `Report loads a session's persisted state from the journal and renders the
replayed candles, trade markers and equity curve to a self-contained HTML
file.

Example:
  papertrade report -c papertrade.yaml -o session.html 1d3f...`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var reportOutPath string

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOutPath, "out", "o", "report.html", "output HTML file")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sessionID := args[0]

	j, err := journal.NewSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	rec, err := j.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	state, ok, err := j.LoadState(sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s has no saved replay state", sessionID)
	}

	tf, err := pricing.ParseTimeframe(rec.Timeframe)
	if err != nil {
		return err
	}

	var src history.Source
	if cfg.Data.StorePath != "" {
		store, err := history.NewStore(cfg.Data.StorePath)
		if err != nil {
			return fmt.Errorf("open bar store: %w", err)
		}
		defer store.Close()
		src = store
	} else {
		src, err = history.NewCSVSource(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("open data dir: %w", err)
		}
	}

	// End date is inclusive, so take bars through the end of that day.
	bars, err := src.Bars(cmd.Context(), rec.Symbol, tf, rec.StartDate, rec.EndDate.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s %s", rec.Symbol, rec.Timeframe)
	}

	snap := state.Snapshot()
	snap.Symbol = rec.Symbol
	snap.StartingCapital = rec.StartingCapital
	if snap.Cursor >= len(bars) {
		snap.Cursor = len(bars) - 1
	}
	visible := bars[:snap.Cursor+1]
	snap.Bar = visible[len(visible)-1]
	snap.Equity = snap.Cash + snap.Position.Qty*snap.Bar.Close

	if err := report.RenderFile(reportOutPath, snap, visible); err != nil {
		return err
	}
	fmt.Printf("Report for %s (%s %s) written to %s\n", sessionID, rec.Symbol, rec.Timeframe, reportOutPath)
	return nil
}
