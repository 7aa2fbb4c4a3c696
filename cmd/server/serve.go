package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"studentreg/internal/platform/config"
	"studentreg/internal/platform/httpserver"
	"studentreg/internal/platform/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := map[string]any{}
			if addr != "" {
				overrides["addr"] = addr
			}
			cfg, err := opts.loadConfig(overrides)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}

// serve wires dependencies and runs until SIGINT/SIGTERM.
func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}
	defer a.close(log)

	srv := httpserver.New(cfg.Server.Addr, a.router)
	log.Info("starting studentreg",
		"addr", cfg.Server.Addr,
		"version", version,
		"form_store", a.formStoreKind,
		"gateway", a.gatewayKind,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	for _, sweep := range a.sweeps {
		g.Go(func() error {
			return runSweeper(gctx, cfg.SweepEvery, sweep, log)
		})
	}
	g.Go(func() error {
		// Warm the admin board; failures are retried on first visit.
		if _, err := a.board.Reload(gctx); err != nil {
			log.Warn("initial roster load failed", "error", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("studentreg stopped", "error", err)
	return err
}

func runSweeper(ctx context.Context, every time.Duration, sweep func(context.Context) int, log *slog.Logger) error {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := sweep(ctx); n > 0 {
				log.DebugContext(ctx, "expired entries swept", "count", n)
			}
		}
	}
}
