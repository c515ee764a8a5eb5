// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/policy-match/internal/logger"
	"github.com/pdiddy/policy-match/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve opens the policy database read-only and exposes POST /search,
POST /match, GET /health, GET /debug/db, and GET /metrics. It stops
gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :3000)")
	mustBind("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("db", cfg.Store.Path).
		Str("ranker", string(cfg.Ranker.Backend)).
		Msg("starting policy-match")

	srv := server.New(cfg.Server, a.pipeline, a.store,
		server.WithLogger(logger.Component(log, "http")),
		server.WithMetrics(a.metrics, a.registry),
	)
	return srv.Run(ctx)
}
