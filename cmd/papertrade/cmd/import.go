package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/history"
	"github.com/rustyeddy/papertrade/pricing"
)

var importCmd = &cobra.Command{
	Use:   "import [csv files...]",
	Short: "Import bar CSVs into the SQLite bar store",
	Long: `Import loads bar CSV files into the local bar store so the server can
serve sessions from it. Re-importing a file is safe; existing bars are
overwritten in place.

Example:
  papertrade import --store bars.sqlite --symbol AAPL --timeframe 1h data/AAPL_1h.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	imStorePath string
	imSymbol    string
	imTimeframe string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&imStorePath, "store", "./bars.sqlite", "path to the SQLite bar store")
	importCmd.Flags().StringVar(&imSymbol, "symbol", "", "symbol the bars belong to (required)")
	importCmd.Flags().StringVarP(&imTimeframe, "timeframe", "t", "1h", "bar timeframe (1m, 5m, 15m, 30m, 1h, 4h, 1d)")

	importCmd.MarkFlagRequired("symbol")
}

func runImport(cmd *cobra.Command, args []string) error {
	tf, err := pricing.ParseTimeframe(imTimeframe)
	if err != nil {
		return err
	}

	store, err := history.NewStore(imStorePath)
	if err != nil {
		return fmt.Errorf("open bar store: %w", err)
	}
	defer store.Close()

	total := 0
	for _, path := range args {
		bars, err := pricing.LoadCSV(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		n, err := store.Upsert(cmd.Context(), imSymbol, tf, bars)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Printf("  %s: %d bars\n", path, n)
		total += n
	}

	count, err := store.Count(cmd.Context(), imSymbol, tf)
	if err != nil {
		return err
	}
	fmt.Printf("\nImported %d bars; %s %s now holds %d\n", total, imSymbol, tf.Key, count)
	return nil
}
