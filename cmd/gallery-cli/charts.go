package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"chartgallery/internal/app"
	"chartgallery/internal/config"
	"chartgallery/internal/gallery"
	"chartgallery/internal/pipeline"
	"chartgallery/internal/util"
)

var (
	genYears   float64
	genDays    int
	genLocal   bool
	configPath string
	listJSON   bool
	runsLimit  int
)

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(rebuildCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/gallery.yaml", "config file for local commands")

	generateCmd.Flags().Float64Var(&genYears, "years", 5, "years of price history")
	generateCmd.Flags().IntVar(&genDays, "days", 30, "days to forecast")
	generateCmd.Flags().BoolVar(&genLocal, "local", false, "run the pipeline in-process against the configured gallery directory")

	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the grouping as JSON")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs")
}

var generateCmd = &cobra.Command{
	Use:   "generate SYMBOL...",
	Short: "Generate forecast charts",
	Long: `Generate one forecast chart per symbol.

Examples:
  gallery-cli generate AAPL MSFT --years 5 --days 30
  gallery-cli generate "AAPL, MSFT" --local`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete FILENAME...",
	Short: "Delete charts by artifact filename",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			if err := client().Delete(cmd.Context(), name); err != nil {
				return fmt.Errorf("deleting %s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List charts grouped by history and horizon",
	RunE:  runList,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent pipeline runs",
	RunE:  runRuns,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [DIR]",
	Short: "Rewrite index.html of a local gallery directory",
	Long: `Rescan a gallery directory and rewrite its index.html. Without DIR the
configured storage.gallery_dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRebuild,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genYears <= 0 || genDays <= 0 {
		return errors.New("--years and --days must be positive")
	}
	if !genLocal {
		if err := client().Generate(cmd.Context(), args, genYears, genDays); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "generate submitted; see `gallery-cli runs` for per-symbol results")
		return nil
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if genDays > cfg.Forecast.MaxDays {
		return fmt.Errorf("--days exceeds forecast.max_days (%d)", cfg.Forecast.MaxDays)
	}

	now := time.Now()
	start, end := pipeline.Window(now, genYears)
	outcomes := a.Batch.Run(cmd.Context(), pipeline.BatchRequest{
		Symbols: splitArgs(args),
		Years:   genYears,
		Days:    genDays,
		Start:   start,
		End:     end,
		Now:     now,
	})
	if _, err := a.Gallery.Rebuild(); err != nil {
		logger.Error("rebuilding index", "error", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tRESULT\tDURATION")
	failed := 0
	for _, o := range outcomes {
		var result string
		if o.Err != nil {
			failed++
			result = "failed: " + o.Err.Error()
		} else {
			result = "ok " + o.Artifact.Filename
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", o.Symbol, result, o.Duration.Round(time.Millisecond))
	}
	w.Flush()
	if failed == len(outcomes) {
		return errors.New("no chart generated")
	}
	return nil
}

// splitArgs accepts "AAPL MSFT" as separate args or one comma list.
func splitArgs(args []string) []string {
	var out []string
	for _, a := range args {
		out = append(out, strings.FieldsFunc(a, func(r rune) bool {
			return r == ',' || r == ' '
		})...)
	}
	return pipeline.NormalizeSymbols(out)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	idx, err := client().Charts(ctx)
	if err != nil {
		return err
	}
	return printIndex(cmd, idx)
}

func printIndex(cmd *cobra.Command, idx *gallery.Index) error {
	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(idx)
	}
	if idx.Len() == 0 {
		fmt.Fprintln(out, "No charts yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "YEARS\tDAYS\tLABEL\tCREATED\tFILE")
	for _, g := range idx.Groups {
		for _, h := range g.Horizons {
			for _, e := range h.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.Years, h.Days, e.Label, e.Created, e.Filename)
			}
		}
	}
	return w.Flush()
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	runs, err := client().Runs(ctx, runsLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSYMBOL\tSTATUS\tSTAGE\tDETAIL")
	for _, r := range runs {
		detail := r.Artifact
		if r.Reason != "" {
			detail = r.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Format(time.DateTime), r.Symbol, r.Status, r.Stage, detail)
	}
	return w.Flush()
}

func runRebuild(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dir = cfg.Storage.GalleryDir
	}

	gs, err := gallery.NewStore(dir, gallery.WithLogger(util.NewLogger("warn", "text", os.Stderr)))
	if err != nil {
		return err
	}
	idx, err := gs.Rebuild()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %s: %d charts, %d orphaned manifests\n",
		dir, idx.Len(), idx.Orphans)
	return nil
}
