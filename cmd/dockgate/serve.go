package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dockgate/dockgate/cmd/dockgate/di"
	internaldi "github.com/dockgate/dockgate/internal/di"
	"github.com/dockgate/dockgate/internal/haproxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dockgate daemon",
	Long: `Start the daemon that keeps the proxy routing config in step with the
backend store and live containers, and runs the certificate sync scheduler.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(configPath())
	if err != nil {
		return err
	}

	logSvc, err := di.Invoke[*internaldi.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize logger")
		return err
	}
	logger := *logSvc.Logger
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	engSvc, err := di.Invoke[*internaldi.EngineService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to build engine")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgSvc := di.MustInvoke[*internaldi.ConfigService](container)
	cfgSvc.StartWatching(ctx)

	// Startup regeneration reconciles drift accumulated while the daemon
	// was down. A stale live config after both reload and restart fail is
	// the one startup error worth dying for.
	startupCtx, startupCancel := context.WithTimeout(ctx, 2*time.Minute)
	err = engSvc.Engine.RegenerateAll(startupCtx)
	startupCancel()
	if err != nil {
		var reloadErr *haproxy.ReloadFailedError
		if errors.As(err, &reloadErr) {
			log.Error().Err(err).Msg("live routing is stale and the proxy cannot be recovered")
			return err
		}
		log.Warn().Err(err).Msg("startup regeneration incomplete, continuing")
	}

	syncSvc := di.MustInvoke[*internaldi.CertSyncService](container)
	syncSvc.Scheduler.Start()

	log.Info().Msg("dockgate daemon started")

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := container.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		return err
	}

	log.Info().Msg("daemon stopped")
	return nil
}
