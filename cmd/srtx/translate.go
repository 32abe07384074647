package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-batch-translator/internal/backend"
	"github.com/MimeLyc/srt-batch-translator/internal/config"
	"github.com/MimeLyc/srt-batch-translator/internal/language"
	"github.com/MimeLyc/srt-batch-translator/internal/persistence"
	"github.com/MimeLyc/srt-batch-translator/internal/pipeline"
	"github.com/MimeLyc/srt-batch-translator/internal/translator"
	"github.com/MimeLyc/srt-batch-translator/pkg/file"
	"github.com/MimeLyc/srt-batch-translator/pkg/log"
)

type translateArgs struct {
	lang         string
	output       string
	batchSize    int
	fallbackSize int
	provider     string
	model        string
	pace         time.Duration
	failurePace  time.Duration
	fresh        bool
}

func newTranslateCmd(flags *rootFlags) *cobra.Command {
	a := &translateArgs{}
	cmd := &cobra.Command{
		Use:   "translate <input.srt>",
		Short: "Translate an SRT file",
		Long: `Translate an SRT file into the target language.

The output defaults to <input>_<lang>.srt next to the input. Ctrl-C lets
the request in flight finish, writes what was translated so far and keeps
the rest in the original language.

Examples:
  # Translate to Brazilian Portuguese with Gemini
  srtx translate movie.srt --lang pt-BR

  # Use OpenAI with smaller batches
  srtx translate movie.srt -l ja --provider openai --batch-size 60

  # Resume an interrupted run
  srtx translate movie.srt -l fr --checkpoint-db ~/.cache/srtx.db

  # Translate again, ignoring stored checkpoints
  srtx translate movie.srt -l fr --checkpoint-db ~/.cache/srtx.db --fresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, flags, a, args[0])
		},
	}

	cmd.Flags().StringVarP(&a.lang, "lang", "l", "", "target language code (or TARGET_LANGUAGE, default en)")
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "output path (default <input>_<lang>.srt)")
	cmd.Flags().IntVar(&a.batchSize, "batch-size", 0, "maximum subtitles per request (or BATCH_SIZE, default 150)")
	cmd.Flags().IntVar(&a.fallbackSize, "fallback-size", 0, "sub-batch size after a failed request (default a quarter of --batch-size)")
	cmd.Flags().StringVar(&a.provider, "provider", "", "gemini, openai or compatible (or LLM_PROVIDER)")
	cmd.Flags().StringVar(&a.model, "model", "", "model name (or LLM_MODEL)")
	cmd.Flags().DurationVar(&a.pace, "pace", 0, "wait after each successful request (or PACE_DELAY, default 1s)")
	cmd.Flags().DurationVar(&a.failurePace, "failure-pace", 0, "wait after each failed request (or FAILURE_DELAY, default 2s)")
	cmd.Flags().BoolVar(&a.fresh, "fresh", false, "discard stored checkpoints of this file and language first")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.Providers, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("lang", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		codes := make([]string, 0)
		for _, d := range language.Supported() {
			codes = append(codes, d.Code)
		}
		return codes, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// options turns the flags that were set into config overrides
func (a *translateArgs) options(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	changed := cmd.Flags().Changed
	if changed("lang") {
		opts = append(opts, func(c *config.Config) { c.Translate.TargetLanguage = a.lang })
	}
	if changed("batch-size") {
		opts = append(opts, func(c *config.Config) { c.Translate.BatchSize = a.batchSize })
	}
	if changed("fallback-size") {
		opts = append(opts, func(c *config.Config) { c.Translate.FallbackSize = a.fallbackSize })
	}
	if changed("provider") {
		opts = append(opts, func(c *config.Config) { c.LLM.Provider = a.provider })
	}
	if changed("model") {
		opts = append(opts, func(c *config.Config) { c.LLM.Model = a.model })
	}
	if changed("pace") {
		opts = append(opts, func(c *config.Config) { c.Translate.PaceDelay = a.pace })
	}
	if changed("failure-pace") {
		opts = append(opts, func(c *config.Config) { c.Translate.FailureDelay = a.failurePace })
	}
	return opts
}

func runTranslate(cmd *cobra.Command, flags *rootFlags, a *translateArgs, input string) error {
	cfg, err := loadConfig(cmd, flags, a.options(cmd)...)
	if err != nil {
		return err
	}

	target, err := language.Lookup(cfg.Translate.TargetLanguage)
	if err != nil {
		return pipeline.WrapError(err, pipeline.ErrLanguage, "unknown target language").
			WithContext("code", cfg.Translate.TargetLanguage)
	}
	output := a.output
	if output == "" {
		output = file.TranslatedPath(input, target.Code)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, err := backend.New(ctx, cfg.LLM)
	if err != nil {
		return pipeline.WrapError(err, pipeline.ErrConfig, "failed to create backend").
			WithContext("provider", cfg.LLM.Provider)
	}

	opts := pipeline.Options{
		BatchSize: cfg.Translate.BatchSize,
		Dispatch: translator.Options{
			FallbackSize: cfg.Translate.FallbackSize,
			PaceDelay:    cfg.Translate.PaceDelay,
			FailureDelay: cfg.Translate.FailureDelay,
		},
		Notifier: progressNotifier(cmd, flags),
		Fresh:    a.fresh,
	}
	if cfg.System.CheckpointDB != "" {
		store, err := persistence.NewSQLiteStore(cfg.System.CheckpointDB)
		if err != nil {
			return pipeline.WrapError(err, pipeline.ErrConfig, "failed to open checkpoint database").
				WithContext("path", cfg.System.CheckpointDB)
		}
		defer store.Close()
		opts.Store = store
	}

	log.Info("Translating %s into %s with %s (%s)", input, target, cfg.LLM.Provider, cfg.LLM.Model)
	p := pipeline.New(translator.NewLLMBackend(completer), opts)
	res, err := p.Run(ctx, pipeline.Request{
		InputPath:      input,
		OutputPath:     output,
		TargetLanguage: target.Code,
	})
	if errors.Is(err, pipeline.ErrStopped) {
		log.Warn("Stopped early; untranslated subtitles were written in the original language")
		printSummary(cmd, res)
		return nil
	}
	if err != nil {
		return err
	}
	printSummary(cmd, res)
	return nil
}

// progressNotifier prints progress to stderr. With --log-file progress goes
// through the logger so it lands in the file too.
func progressNotifier(cmd *cobra.Command, flags *rootFlags) pipeline.Notifier {
	if flags.fileLogger != nil {
		return pipeline.LogNotifier{}
	}
	errOut := cmd.ErrOrStderr()
	return pipeline.NotifierFunc(func(message string) {
		fmt.Fprintln(errOut, message)
	})
}

func printSummary(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved %s (%d subtitles, %d batches", res.OutputPath, res.Document.BlockCount, res.Batches)
	if res.Resumed > 0 {
		fmt.Fprintf(out, ", %d from checkpoints", res.Resumed)
	}
	fmt.Fprintln(out, ")")
	if res.Mismatches > 0 {
		fmt.Fprintf(out, "%d batches changed the subtitle count; review them before use\n", res.Mismatches)
	}
	if len(res.Degraded) > 0 {
		fmt.Fprint(out, "Untranslated subtitles:")
		for _, s := range res.Degraded {
			fmt.Fprintf(out, " %s", s)
		}
		fmt.Fprintln(out)
	}
	if res.RunID != "" {
		fmt.Fprintf(out, "Run %s\n", res.RunID)
	}
}
