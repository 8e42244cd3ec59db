package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FranksOps/scholar/internal/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored search runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, _ := cmd.Flags().GetString("store")
		if dsn == "" {
			dsn = cfg.Storage.DSN
		}
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := cmd.Context()
		store, err := openStore(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Query(ctx, storage.Filter{Limit: limit})
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func init() {
	runsCmd.Flags().String("store", "", "run store DSN; overrides storage.dsn")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")

	rootCmd.AddCommand(runsCmd)
}

func printRuns(w io.Writer, runs []*storage.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No stored runs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tRECORDS\tYEARS\tQUERY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d-%d\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), len(r.Records), r.YearFrom, r.YearTo, r.Query)
	}
	return tw.Flush()
}
