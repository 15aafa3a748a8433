package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dockgate/dockgate/cmd/dockgate/di"
	internaldi "github.com/dockgate/dockgate/internal/di"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Reconcile ports and rewrite the proxy config once",
	Long: `Run one reconciliation sweep against live containers, recompile the proxy
configuration, and apply it. Useful after manual container surgery.`,
	RunE: runRegenerate,
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}

func runRegenerate(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(configPath())
	if err != nil {
		return err
	}
	defer func() { _ = container.Shutdown() }()

	engSvc, err := di.Invoke[*internaldi.EngineService](container)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := engSvc.Engine.RegenerateAll(ctx); err != nil {
		return fmt.Errorf("regeneration failed: %w", err)
	}

	fmt.Println("✓ proxy configuration regenerated")
	return nil
}
