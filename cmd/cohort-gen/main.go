// Command cohort-gen writes synthetic questionnaire cohorts and submits
// datasets to a running risk profiler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/riskprofiler/internal/adapters/repository"
	"github.com/okian/riskprofiler/internal/testcohort"
	"github.com/okian/riskprofiler/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cohort-gen",
		Short:         "Generate and submit synthetic risk questionnaire cohorts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := cmd.Flags().GetString(flagLogLevel)
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString(flagLogFormat)
			if err != nil {
				return err
			}
			return logger.Init(
				logger.WithLevel(level),
				logger.WithFormat(format),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
		},
	}
	root.PersistentFlags().String(flagLogLevel, "info", "logging level (debug|info|warn|error)")
	root.PersistentFlags().String(flagLogFormat, logger.FormatText, "logging format (text|json)")

	root.AddCommand(newGenerateCmd(), newSubmitCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	cfg := testcohort.DefaultGenerateConfig()
	cmd := &cobra.Command{
		Use:   "generate [output-file]",
		Args:  cobra.ExactArgs(1),
		Short: "Write a reproducible synthetic dataset (.yaml, .yml or .json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cohorts := testcohort.Generate(cfg)
			if err := repository.SaveFile(args[0], cohorts); err != nil {
				return err
			}
			logger.Get().Info(cmd.Context(), "dataset written",
				logger.String("path", args[0]),
				logger.Int("cohorts", len(cohorts)),
				logger.Int("subjects_per_cohort", cfg.Subjects),
				logger.Int("questions", cfg.Questions),
			)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.Cohorts, "cohorts", cfg.Cohorts, "number of cohorts")
	f.IntVar(&cfg.Subjects, "subjects", cfg.Subjects, "subjects per cohort")
	f.IntVar(&cfg.Questions, "questions", cfg.Questions, "strategies per catalog")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "generator seed")
	f.Float64Var(&cfg.EmptyRate, "empty-rate", cfg.EmptyRate, "share of subjects without usable ratings")
	f.Float64Var(&cfg.Noise, "noise", cfg.Noise, "rating noise standard deviation")
	return cmd
}

func newSubmitCmd() *cobra.Command {
	cfg := testcohort.SubmitConfig{
		BaseURL: "http://localhost:9080",
		Timeout: 30 * time.Second,
		Poll:    250 * time.Millisecond,
	}
	cmd := &cobra.Command{
		Use:   "submit [dataset-file]",
		Args:  cobra.ExactArgs(1),
		Short: "Upload a dataset to a running server and print each cohort summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Dataset = args[0]
			reports, err := testcohort.Submit(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "%s\tprofiled=%d\tskipped=%d\taverage=%.4f\t%v\n",
					r.CohortID, r.Profiled, r.Skipped, r.AverageCoefficient, r.Distribution)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.StringVar(&cfg.Scheme, "scheme", "", "classification scheme (four|five); empty uses the server default")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.BoolVar(&cfg.Async, "async", false, "analyse through background jobs")
	f.DurationVar(&cfg.Poll, "poll", cfg.Poll, "job polling interval")
	return cmd
}
