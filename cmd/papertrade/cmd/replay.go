package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/pricing"
	"github.com/rustyeddy/papertrade/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a headless scripted replay against a bar CSV",
	Long: `Replay steps through a bar CSV from warm-up to the final bar, executing
the orders listed in the script file as their bars come up.

Script lines are "cursor,side,qty", one order per line; blank lines and lines
starting with # are ignored:

  # buy 10 at bar 25, close half at bar 40
  25,BUY,10
  40,SELL,5

Example:
  papertrade replay --bars data/AAPL_1h.csv --script orders.txt --out trades.csv`,
	RunE: runReplay,
}

var (
	rpBarsPath   string
	rpScriptPath string
	rpSymbol     string
	rpTimeframe  string
	rpCapital    float64
	rpWarmup     int
	rpOutPath    string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&rpBarsPath, "bars", "b", "", "path to bar CSV (time,open,high,low,close[,volume]) (required)")
	replayCmd.Flags().StringVarP(&rpScriptPath, "script", "s", "", "path to order script (cursor,side,qty per line)")
	replayCmd.Flags().StringVar(&rpSymbol, "symbol", "SIM", "symbol label for the replay")
	replayCmd.Flags().StringVarP(&rpTimeframe, "timeframe", "t", "1h", "bar timeframe (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
	replayCmd.Flags().Float64Var(&rpCapital, "capital", 10_000, "starting capital")
	replayCmd.Flags().IntVarP(&rpWarmup, "warmup", "w", session.DefaultWarmupBars, "warm-up bars always visible before the cursor")
	replayCmd.Flags().StringVarP(&rpOutPath, "out", "o", "", "write executed trades to this CSV file")

	replayCmd.MarkFlagRequired("bars")
}

type scriptOrder struct {
	cursor int
	side   session.Side
	qty    float64
}

func runReplay(cmd *cobra.Command, args []string) error {
	tf, err := pricing.ParseTimeframe(rpTimeframe)
	if err != nil {
		return err
	}

	bars, err := pricing.LoadCSV(rpBarsPath)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	series, err := pricing.NewSeries(rpSymbol, tf, bars)
	if err != nil {
		return err
	}

	var orders []scriptOrder
	if rpScriptPath != "" {
		orders, err = loadScript(rpScriptPath)
		if err != nil {
			return fmt.Errorf("load script: %w", err)
		}
	}
	byCursor := make(map[int][]scriptOrder, len(orders))
	for _, o := range orders {
		byCursor[o.cursor] = append(byCursor[o.cursor], o)
	}

	sess, err := session.Start(session.Config{
		StartingCapital: rpCapital,
		WarmupBars:      rpWarmup,
	}, series, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Replaying %s (%s): %d bars, warm-up %d\n\n", rpSymbol, tf.Key, series.Len(), rpWarmup)

	for {
		snap := sess.Snapshot()
		for _, o := range byCursor[snap.Cursor] {
			tr, err := sess.ExecuteTrade(o.side, o.qty)
			if err != nil {
				fmt.Printf("  bar %4d  %-4s %.4f rejected: %v\n", snap.Cursor, o.side, o.qty, err)
				continue
			}
			fmt.Printf("  bar %4d  %-4s %.4f @ %.5f  realized %.2f\n",
				tr.Cursor, tr.Side, tr.Qty, tr.Price, tr.RealizedPL)
		}
		if err := sess.StepForward(); err != nil {
			return err
		}
		if sess.Snapshot().Cursor == snap.Cursor {
			break
		}
	}

	final := sess.Snapshot()
	sess.End()

	fmt.Printf("\nReplay Complete!\n")
	fmt.Printf("  Trades: %d\n", len(final.Trades))
	fmt.Printf("  Cash: $%.2f\n", final.Cash)
	fmt.Printf("  Position: %.4f @ %.5f\n", final.Position.Qty, final.Position.AvgPrice)
	fmt.Printf("  Equity: $%.2f\n", final.Equity)
	fmt.Printf("  P&L: $%.2f\n", final.Equity-final.StartingCapital)

	if rpOutPath != "" {
		if err := journal.ExportTradesCSV(rpOutPath, journal.StateFromSnapshot(final).Trades); err != nil {
			return fmt.Errorf("export trades: %w", err)
		}
		fmt.Printf("  Trades written to %s\n", rpOutPath)
	}
	return nil
}

func loadScript(path string) ([]scriptOrder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var orders []scriptOrder
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: want cursor,side,qty", line)
		}

		cursor, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: cursor: %w", line, err)
		}
		side := session.Side(strings.ToUpper(strings.TrimSpace(parts[1])))
		if side != session.Buy && side != session.Sell {
			return nil, fmt.Errorf("line %d: side must be BUY or SELL", line)
		}
		qty, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: qty: %w", line, err)
		}
		orders = append(orders, scriptOrder{cursor: cursor, side: side, qty: qty})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
