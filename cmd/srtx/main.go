package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-batch-translator/internal/config"
	"github.com/MimeLyc/srt-batch-translator/internal/pipeline"
	"github.com/MimeLyc/srt-batch-translator/pkg/log"
)

// rootFlags are inherited by every subcommand
type rootFlags struct {
	configFile   string
	envFile      string
	logLevel     string
	logFile      string
	checkpointDB string

	fileLogger *log.FileLogger
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "srtx",
		Short: "Translate SRT subtitles in batches with an LLM",
		Long: `srtx translates SRT subtitle files with an LLM backend.

Subtitles are sent in batches. A batch that fails is retried once as smaller
sub-batches; subtitles that still fail keep their original text and are
listed at the end so they can be re-run. Indices and timestamps are always
copied from the source.

Commands:
  translate   Translate an SRT file
  plan        Show how a file would be split into batches
  languages   List built-in target languages
  history     List recorded runs from the checkpoint database

Providers:
  gemini      Google Gemini API (default, GEMINI_API_KEY)
  openai      OpenAI Chat Completions (OPENAI_API_KEY)
  compatible  Any OpenAI-compatible endpoint, e.g. OpenRouter (LLM_API_URL)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.fileLogger != nil {
				return flags.fileLogger.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file to load (default: ./.env when present)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (or LOG_LEVEL)")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "also append logs to this file")
	root.PersistentFlags().StringVar(&flags.checkpointDB, "checkpoint-db", "", "sqlite database for checkpoints and run history (or CHECKPOINT_DB)")

	root.AddCommand(
		newTranslateCmd(flags),
		newPlanCmd(flags),
		newLanguagesCmd(),
		newHistoryCmd(flags),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !pipeline.Report(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// loadConfig reads .env, the YAML file and the environment, then applies
// the persistent flags and opts
func loadConfig(cmd *cobra.Command, flags *rootFlags, opts ...config.Option) (*config.Config, error) {
	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return nil, pipeline.WrapError(err, pipeline.ErrConfig, "failed to load env file")
	}

	if cmd.Flags().Changed("log-level") {
		opts = append(opts, func(c *config.Config) { c.System.LogLevel = flags.logLevel })
	}
	if cmd.Flags().Changed("checkpoint-db") {
		opts = append(opts, func(c *config.Config) { c.System.CheckpointDB = flags.checkpointDB })
	}

	cfg, err := config.Load(flags.configFile, opts...)
	if err != nil {
		return nil, pipeline.WrapError(err, pipeline.ErrConfig, "invalid configuration")
	}

	level := log.ParseLevel(cfg.System.LogLevel)
	if flags.logFile != "" {
		fl, err := log.NewFileLogger(flags.logFile, level)
		if err != nil {
			return nil, pipeline.WrapError(err, pipeline.ErrConfig, "failed to open log file")
		}
		flags.fileLogger = fl
		log.SetLogger(fl.Logger)
	} else {
		log.GetLogger().SetLevel(level)
	}
	return cfg, nil
}
