package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/campaignyard/internal/dashboard"
	"github.com/zulandar/campaignyard/internal/notify"
	"github.com/zulandar/campaignyard/internal/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the campaign workspace",
		Long: `Loads the campaign and serves it to the front-ends while the background
loops run on their schedules. Changes are autosaved; a final save happens on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	log, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ws, err := openWorkspace(ctx, configPath, log)
	if err != nil {
		return err
	}
	defer ws.Close()

	notifier, err := notify.FromConfig(ws.cfg.Notify)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(scheduler.Options{
		Engine:     ws.engine,
		Notifier:   notifier,
		Logger:     log.Named("scheduler"),
		Thresholds: ws.thresholds(),
		DigestSpec: ws.cfg.Notify.Digest,
	})
	if err != nil {
		return err
	}
	sched.RefreshMetrics()

	if port <= 0 {
		port = ws.cfg.Dashboard.Port
	}
	log.Info("serving campaign",
		zap.String("campaign", ws.engine.Meta().Name),
		zap.Bool("restored", ws.loaded),
		zap.Duration("autosave", ws.cfg.AutosaveInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ws.adapter.Run(gctx, ws.cfg.AutosaveInterval)
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return dashboard.Start(gctx, dashboard.StartOpts{
			Engine: ws.engine,
			Port:   port,
			Logger: log.Named("dashboard"),
			Runner: sched,
		})
	})
	return g.Wait()
}
