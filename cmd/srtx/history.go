package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-batch-translator/internal/config"
	"github.com/MimeLyc/srt-batch-translator/internal/persistence"
	"github.com/MimeLyc/srt-batch-translator/internal/pipeline"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs from the checkpoint database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, config.Offline())
			if err != nil {
				return err
			}
			if cfg.System.CheckpointDB == "" {
				return pipeline.NewError(pipeline.ErrConfig, "no checkpoint database configured; set --checkpoint-db or CHECKPOINT_DB")
			}
			store, err := persistence.NewSQLiteStore(cfg.System.CheckpointDB)
			if err != nil {
				return pipeline.WrapError(err, pipeline.ErrConfig, "failed to open checkpoint database")
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			return printRuns(cmd, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func printRuns(cmd *cobra.Command, runs []persistence.Run) error {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tLANG\tBATCHES\tINPUT\tUNTRANSLATED")
	for _, r := range runs {
		spans := make([]string, len(r.Degraded))
		for i, s := range r.Degraded {
			spans[i] = s.String()
		}
		untranslated := strings.Join(spans, ",")
		if untranslated == "" {
			untranslated = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			humanize.Time(r.StartedAt), r.Status, r.TargetLanguage, r.Batches, filepath.Base(r.SourcePath), untranslated)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, r := range runs {
		if r.Error != "" {
			fmt.Fprintf(out, "%s: %s\n", r.ID, r.Error)
		}
	}
	return nil
}
