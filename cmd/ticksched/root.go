package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"adaptsched/internal/sched"
)

var (
	flagConfig   string
	flagLogLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ticksched",
		Short: "Single-core CPU scheduling simulator",
		Long: "ticksched simulates a preemptive single-core scheduler on a fixed tick " +
			"and reports how round robin, FCFS and SJF order synthetic tasks.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yml", "YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")

	root.AddCommand(newRunCmd(), newPoliciesCmd())
	return root
}

// setupLogging installs the console logger on stderr.
func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).Level(lvl)
	return log.Logger
}

func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List scheduling policies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range sched.Policies {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	}
}
