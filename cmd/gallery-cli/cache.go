package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chartgallery/internal/config"
	"chartgallery/internal/store"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache [DATA_DIR]",
	Short: "List symbols held in the local bar cache",
	Long: `List the symbols with cached daily bars. Without DATA_DIR the configured
storage.data_dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCache,
}

func runCache(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dir = cfg.Storage.DataDir
	}
	if dir == "" {
		return errors.New("bar cache disabled: storage.data_dir is empty")
	}

	var bars store.BarStore = store.NewParquetStore(dir)
	symbols, err := bars.ListSymbols(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing cached symbols: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(symbols) == 0 {
		fmt.Fprintf(out, "bar cache %s is empty\n", dir)
		return nil
	}
	for _, s := range symbols {
		fmt.Fprintln(out, s)
	}
	return nil
}
