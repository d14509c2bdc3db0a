package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"adaptsched/internal/console"
	"adaptsched/internal/job"
	"adaptsched/internal/sched"
)

type runOptions struct {
	policy      string
	sliceMS     int
	tickMS      int
	scenario    string
	random      int
	seed        int64
	duration    time.Duration
	csvPath     string
	interactive bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.policy, "policy", "", "scheduling policy; overrides config")
	f.IntVar(&opts.sliceMS, "slice", 0, "round robin time slice in ms; overrides config")
	f.IntVar(&opts.tickMS, "tick", 0, "tick interval in ms; overrides config")
	f.StringVar(&opts.scenario, "scenario", "", "YAML scenario file to replay")
	f.IntVar(&opts.random, "random", 0, "submit N random tasks")
	f.Int64Var(&opts.seed, "seed", 1, "seed for --random")
	f.DurationVar(&opts.duration, "duration", 15*time.Second, "stop after this long (0 = until interrupted)")
	f.StringVar(&opts.csvPath, "csv", "", "write log entries to this CSV file")
	f.BoolVar(&opts.interactive, "interactive", false, "read console commands from stdin")
	return cmd
}

func runSimulation(cmd *cobra.Command, opts runOptions) error {
	cfg, err := sched.Load(flagConfig)
	if err != nil {
		return err
	}
	if opts.policy != "" {
		if cfg.Policy, err = sched.ParsePolicy(opts.policy); err != nil {
			return err
		}
	}
	if opts.sliceMS > 0 {
		cfg.TimeSliceMS = opts.sliceMS
	}
	if opts.tickMS > 0 {
		cfg.TickMS = opts.tickMS
	}
	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	logger := setupLogging(level)

	s := sched.New(cfg, sched.WithLogger(logger.With().Str("component", "scheduler").Logger()))
	if opts.csvPath != "" {
		if err := s.EnableCSVLogging(opts.csvPath); err != nil {
			return err
		}
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error().Err(err).Msg("close csv log")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	logger.Info().
		Stringer("policy", cfg.Policy).
		Int("tick_ms", cfg.TickMS).
		Int("time_slice_ms", cfg.TimeSliceMS).
		Msg("starting simulation")

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	feedWorkloads(ctx, s, opts, logger)

	if opts.interactive {
		con := console.New(s, cmd.OutOrStdout())
		go func() {
			if err := con.Serve(ctx, cmd.InOrStdin()); err != nil {
				logger.Error().Err(err).Msg("console")
			}
		}()
	}

	if err := <-done; err != nil {
		return err
	}
	return report(cmd, s)
}

func feedWorkloads(ctx context.Context, s *sched.Scheduler, opts runOptions, logger zerolog.Logger) {
	onErr := func(e job.Entry, err error) {
		logger.Warn().Err(err).Str("task", e.Name).Msg("workload entry rejected")
	}

	var scenarios []job.Scenario
	if opts.scenario != "" {
		sc, err := job.LoadScenario(opts.scenario)
		if err != nil {
			logger.Error().Err(err).Msg("load scenario")
		} else {
			scenarios = append(scenarios, sc)
		}
	}
	if opts.random > 0 {
		scenarios = append(scenarios, job.Random(opts.random, rand.New(rand.NewSource(opts.seed))))
	}

	for _, sc := range scenarios {
		go func(sc job.Scenario) {
			if err := sc.Replay(ctx, s, onErr); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("replay scenario")
			}
		}(sc)
	}
}

func report(cmd *cobra.Command, s *sched.Scheduler) error {
	st := s.State()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n== tasks after %d ticks (%d dropped) ==\n", st.Tick, s.DroppedTicks())
	if err := console.WriteTasks(out, st.Tasks); err != nil {
		return err
	}
	fmt.Fprintln(out, "\n== metrics ==")
	if err := console.WriteMetrics(out, st.Metrics); err != nil {
		return err
	}
	fmt.Fprintln(out, "\n== log ==")
	return console.WriteLogs(out, st.Logs)
}
