package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/scholar/internal/export"
	"github.com/FranksOps/scholar/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a stored run's records to files",
	Long: `Export loads a run from the store (the most recent one unless --run is
given) and writes its records to every --out file. The format follows the
file extension: .csv, .xlsx, .json, .yaml/.yml or .bib.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("store", "", "run store DSN; overrides storage.dsn")
	exportCmd.Flags().String("run", "", "run ID (default: most recent run)")
	exportCmd.Flags().StringArray("out", nil, "export file; repeat for several formats")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	dsn, _ := cmd.Flags().GetString("store")
	if dsn == "" {
		dsn = cfg.Storage.DSN
	}
	runID, _ := cmd.Flags().GetString("run")
	outs, _ := cmd.Flags().GetStringArray("out")
	if len(outs) == 0 {
		return errors.New("provide at least one --out file")
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := storage.Latest(ctx, store, runID)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) && runID != "" {
			return fmt.Errorf("run %s not found", runID)
		}
		return err
	}

	switch err := export.WriteFiles(ctx, run.Records, outs...); {
	case errors.Is(err, export.ErrNoRecords):
		fmt.Fprintln(cmd.ErrOrStderr(), "No results to save")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records from run %s\n", len(run.Records), run.ID)
	return nil
}

// writeFileWith creates path and hands it to write. The file is removed if
// write fails.
func writeFileWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
