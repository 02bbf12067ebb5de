package main

import (
	"context"
	"fmt"
	"path/filepath"

	"sitemerge/internal/logging"
	"sitemerge/internal/merge"
	"sitemerge/internal/sink"
	"sitemerge/internal/store"
	"sitemerge/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	mergeJSON   string
	mergeDB     string
	mergeDriver string
	mergeStrict bool
	mergeQuiet  bool
	mergeWatch  bool
)

// mergeCmd joins the four inputs into merged site records
var mergeCmd = &cobra.Command{
	Use:   "merge [dir]",
	Short: "Merge the four input files into one record per site",
	Long: `Streams main.json, poc.json, equipment.json and materials.json from the
input directory concurrently and joins them by site id. Inputs must be sorted
by id; materials for one id must be contiguous.

Merged records are logged, and optionally written to a JSON file and/or
stored as a run in a SQLite database.

Examples:
  sitemerge merge ./input --json merged.json
  sitemerge merge ./input --db runs.db --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeJSON, "json", "", "Write merged records to this JSON file")
	mergeCmd.Flags().StringVar(&mergeDB, "db", "", "Store the run in this SQLite database")
	mergeCmd.Flags().StringVar(&mergeDriver, "driver", "", "SQLite driver: sqlite3 or sqlite (default from config)")
	mergeCmd.Flags().BoolVar(&mergeStrict, "strict", false, "Fail on ids without a site record")
	mergeCmd.Flags().BoolVarP(&mergeQuiet, "quiet", "q", false, "Do not log each merged record")
	mergeCmd.Flags().BoolVar(&mergeWatch, "watch", false, "Re-run the merge whenever an input file changes")
}

// mergeSettings is the resolved configuration of one merge invocation.
type mergeSettings struct {
	dir        string
	jsonPath   string
	dbPath     string
	driver     string
	logRecords bool
	opts       merge.Options
}

func resolveMergeSettings(args []string) mergeSettings {
	s := mergeSettings{
		dir:        cfg.Input.Dir,
		jsonPath:   cfg.Output.JSONPath,
		dbPath:     cfg.Output.DatabasePath,
		driver:     cfg.Output.DatabaseDriver,
		logRecords: cfg.Output.LogRecords,
		opts:       cfg.MergeOptions(),
	}
	if len(args) == 1 {
		s.dir = args[0]
	}
	if mergeJSON != "" {
		s.jsonPath = mergeJSON
	}
	if mergeDB != "" {
		s.dbPath = mergeDB
	}
	if mergeDriver != "" {
		s.driver = mergeDriver
	}
	if mergeQuiet {
		s.logRecords = false
	}
	if mergeStrict {
		s.opts.Strict = true
	}
	return s
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	settings := resolveMergeSettings(args)

	var st *store.Store
	if settings.dbPath != "" {
		var err error
		st, err = store.Open(settings.dbPath, settings.driver, logging.For(logger, logging.CategoryStore))
		if err != nil {
			return err
		}
		defer st.Close()
	}

	once := func(ctx context.Context) error {
		stats, run, err := mergeOnce(ctx, settings, st)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Merged %d sites from %s", stats.Records, settings.dir)
		if stats.Orphans > 0 {
			fmt.Fprintf(out, " (%d ids without a site record dropped)", stats.Orphans)
		}
		if run != nil {
			fmt.Fprintf(out, " [run %s: %d stored]", run.ID(), run.Written())
		}
		fmt.Fprintln(out)
		return nil
	}

	if err := once(ctx); err != nil {
		return err
	}
	if !mergeWatch {
		return nil
	}

	debounce, err := cfg.DebounceDuration()
	if err != nil {
		return err
	}
	w, err := watch.New(settings.dir, cfg.Files().Paths(settings.dir), debounce,
		func(ctx context.Context) error {
			if err := once(ctx); err != nil {
				// Inputs are often mid-rewrite; keep watching.
				logger.Warn("merge failed", zap.Error(err))
			}
			return nil
		},
		logging.For(logger, logging.CategoryWatch))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// mergeOnce runs one merge of settings.dir into the configured sinks.
func mergeOnce(ctx context.Context, settings mergeSettings, st *store.Store) (merge.Stats, *store.Run, error) {
	in, closer, err := merge.OpenDir(settings.dir, cfg.Files())
	if err != nil {
		return merge.Stats{}, nil, err
	}
	defer closer.Close()

	var sinks sink.Multi
	if settings.logRecords {
		sinks = append(sinks, sink.NewLogSink(logging.For(logger, logging.CategorySink)))
	}
	if settings.jsonPath != "" {
		js, err := sink.NewJSONSink(settings.jsonPath)
		if err != nil {
			return merge.Stats{}, nil, err
		}
		sinks = append(sinks, js)
	}
	var run *store.Run
	if st != nil {
		source, _ := filepath.Abs(settings.dir)
		run, err = st.StartRun(ctx, source)
		if err != nil {
			sinks.Close()
			return merge.Stats{}, nil, err
		}
		sinks = append(sinks, run)
	}

	m := merge.New(logging.For(logger, logging.CategoryMerge), settings.opts)
	stats, runErr := m.Run(ctx, in, sinks.Write)

	closeErr := sinks.Close()
	if runErr == nil {
		runErr = closeErr
	}
	if run != nil {
		if err := run.Finish(ctx, stats, runErr); err != nil && runErr == nil {
			runErr = err
		}
	}
	return stats, run, runErr
}
