// Package main is the entry point for dockgate.
package main

import (
	"context"
	"os"
	"path/filepath"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "dockgate.yaml"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dockgate",
	Short: "SNI routing and certificate lifecycle daemon for tenant databases",
	Long: `dockgate manages per-tenant database containers exposed through a shared
HAProxy instance: it keeps the routing config in step with live containers,
assigns SNI-based frontends per protocol family, and synchronizes TLS
certificate bundles from a local certificate agent.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/dockgate/"+defaultConfigFile+")")
}

// findConfigIn returns dir/dockgate.yaml when it exists, otherwise the
// bare default name.
func findConfigIn(dir string) string {
	path := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return defaultConfigFile
}

// findConfigFile locates the config file: working directory first, then
// the user config directory.
func findConfigFile() string {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "dockgate", defaultConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return defaultConfigFile
}

// configPath resolves the effective config path from the --config flag or
// the search paths.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return findConfigFile()
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
