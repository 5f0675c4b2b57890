package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/history"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the papertrade HTTP API",
	Long: `Serve starts the HTTP API: user accounts, session management and live
replay control. Sessions persist to the journal database as they run, so a
restarted server resumes every session from its last saved state.

Example:
  papertrade serve -c papertrade.yaml`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (config server.jwt_secret or PAPERTRADE_JWT_SECRET)")
	}

	j, err := journal.NewSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

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

	tick, err := cfg.Replay.ParseTickInterval()
	if err != nil {
		return err
	}
	delay, err := cfg.Replay.ParseSaveDelay()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Addr:            cfg.Server.Addr,
		JWTSecret:       cfg.Server.JWTSecret,
		WarmupBars:      cfg.Replay.WarmupBars,
		TickInterval:    tick,
		SaveDelay:       delay,
		StartingCapital: cfg.Replay.StartingCapital,
	}, j, src)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
