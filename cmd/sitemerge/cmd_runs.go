package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"sitemerge/internal/jsonstream"
	"sitemerge/internal/logging"
	"sitemerge/internal/models"
	"sitemerge/internal/store"

	"github.com/spf13/cobra"
)

var (
	runsDB     string
	runsDriver string
	runsLimit  int
)

// runsCmd inspects merge runs stored in SQLite
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored merge runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print the merged records of a run as JSON (default: latest run)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runsShow,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsDB, "db", "", "SQLite database (default from config)")
	runsCmd.PersistentFlags().StringVar(&runsDriver, "driver", "", "SQLite driver: sqlite3 or sqlite (default from config)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 = all)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func openRunStore() (*store.Store, error) {
	path := cfg.Output.DatabasePath
	if runsDB != "" {
		path = runsDB
	}
	if path == "" {
		return nil, fmt.Errorf("no database configured (use --db or output.database_path)")
	}
	driver := cfg.Output.DatabaseDriver
	if runsDriver != "" {
		driver = runsDriver
	}
	return store.Open(path, driver, logging.For(logger, logging.CategoryStore))
}

func runsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tRECORDS\tORPHANS\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Records, r.Orphans, r.Source)
	}
	return tw.Flush()
}

func runsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openRunStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var info store.RunInfo
	if len(args) == 1 {
		info, err = st.GetRun(ctx, args[0])
	} else {
		info, err = st.LatestRun(ctx)
	}
	if err != nil {
		return err
	}
	if info.Status != store.StatusComplete {
		logger.Warn("run did not complete; no records were kept")
	}

	records, err := st.LoadRecords(ctx, info.ID)
	if err != nil {
		return err
	}
	w := jsonstream.NewWriter[models.Record](cmd.OutOrStdout())
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return w.Close()
}
