package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-batch-translator/internal/batch"
	"github.com/MimeLyc/srt-batch-translator/internal/config"
	"github.com/MimeLyc/srt-batch-translator/internal/pipeline"
	"github.com/MimeLyc/srt-batch-translator/internal/subtitle"
)

func newPlanCmd(flags *rootFlags) *cobra.Command {
	var batchSize, fallbackSize int
	cmd := &cobra.Command{
		Use:   "plan <input.srt>",
		Short: "Show how a file would be split into batches",
		Long: `Parse an SRT file and print the batches translate would send, without
calling any backend. Useful to pick --batch-size or to find the index
range of a batch named in a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []config.Option{config.Offline()}
			if cmd.Flags().Changed("batch-size") {
				opts = append(opts, func(c *config.Config) { c.Translate.BatchSize = batchSize })
			}
			if cmd.Flags().Changed("fallback-size") {
				opts = append(opts, func(c *config.Config) { c.Translate.FallbackSize = fallbackSize })
			}
			cfg, err := loadConfig(cmd, flags, opts...)
			if err != nil {
				return err
			}
			return runPlan(cmd, args[0], cfg.Translate.BatchSize, cfg.Translate.FallbackSize)
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "maximum subtitles per request (or BATCH_SIZE, default 150)")
	cmd.Flags().IntVar(&fallbackSize, "fallback-size", 0, "sub-batch size after a failed request")
	return cmd
}

func runPlan(cmd *cobra.Command, input string, batchSize, fallbackSize int) error {
	f, err := subtitle.ReadFile(input)
	if err != nil {
		return pipeline.WrapError(err, pipeline.ErrFileRead, "failed to read input").WithContext("path", input)
	}
	if len(f.Blocks) == 0 {
		return pipeline.NewError(pipeline.ErrParse, "no subtitle blocks found in source").WithContext("path", input)
	}

	batches := batch.Plan(f.Blocks, batchSize)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d subtitles, %d batches of up to %d (fallback %d)\n",
		input, len(f.Blocks), len(batches), batchSize, batch.FallbackSize(batchSize, fallbackSize))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tSUBTITLES\tBLOCKS")
	for _, b := range batches {
		fmt.Fprintf(w, "%d\t%d-%d\t%d\n", b.Sequence+1, b.FirstIndex(), b.LastIndex(), b.Len())
	}
	return w.Flush()
}
