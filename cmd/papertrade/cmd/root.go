package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A paper-trading journal with bar-by-bar session replay",
	Long: `Papertrade replays historical price data bar by bar and lets you place
simulated market orders against it, journaling every trade.

It provides tools for:
  - Serving the HTTP API (accounts, sessions, replay control, trading)
  - Running headless scripted replays against bar CSV files
  - Importing bar data into the local SQLite cache
  - Rendering a stored session to an interactive HTML chart`,
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig returns the file-backed config when --config is set, defaults
// otherwise. The --log-level flag wins over the config file.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}
