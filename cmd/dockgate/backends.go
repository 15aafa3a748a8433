package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dockgate/dockgate/internal/config"
	"github.com/dockgate/dockgate/internal/store"
)

var backendsJSON bool

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered backend entries",
	Long: `List every routing entry in the backend store with its domain, internal
port, and the public port clients should dial.`,
	RunE: runBackends,
}

func init() {
	backendsCmd.Flags().BoolVar(&backendsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(cfg.Store.GetPath(), cfg.Proxy.GetLivePath())
	if err != nil {
		return fmt.Errorf("failed to open backend store: %w", err)
	}

	entries := st.All()
	if backendsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("no backends registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tFAMILY\tDOMAIN\tINTERNAL\tPUBLIC")
	for _, e := range entries {
		public := e.Family.PublicPort()
		if e.ExternalPort != 0 {
			public = e.ExternalPort
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", e.Instance, e.Family, e.Domain, e.InternalPort, public)
	}
	return w.Flush()
}
