package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/synaptecltd/tripunit"
	"github.com/synaptecltd/tripunit/emulator"
	"github.com/synaptecltd/tripunit/events"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/thermal"
	"github.com/synaptecltd/tripunit/trip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run flags
var (
	redisAddr   string
	capFraction float64
	parallel    int
)

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Run scenario files, each through its own engine",
	Long: `Run one or more scenario files concurrently. Each scenario gets its own
protection engine, stops at its first trip and reports the cause and time.

The long-delay thermal memory is restored before the run and saved after
it, in process memory or in Redis when --redis is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScenarios,
}

func init() {
	runCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the thermal-memory record")
	runCmd.Flags().Float64Var(&capFraction, "cap", 1, "thermal-memory capacitor charge at power-up, 0-1")
	runCmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "scenarios to run at once")
}

// outcome is the summary of one scenario run.
type outcome struct {
	path     string
	name     string
	result   emulator.Result
	causes   trip.Causes
	events   int
	duration float64 // seconds emulated
}

func runScenarios(cmd *cobra.Command, args []string) error {
	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))

	outcomes := make([]outcome, len(args))
	for i, path := range args {
		g.Go(func() error {
			o, err := runScenario(ctx, logger, path)
			outcomes[i] = o
			return err
		})
	}
	err = g.Wait()

	printOutcomes(cmd.OutOrStdout(), outcomes)
	return err
}

// runScenario runs one scenario file to its first trip.
func runScenario(ctx context.Context, logger *zap.Logger, path string) (outcome, error) {
	o := outcome{path: path}
	s, err := emulator.LoadScenario(path)
	if err != nil {
		return o, err
	}
	o.name = scenarioName(s, path)
	log := logger.With(zap.String("scenario", o.name))

	rec := events.NewMemoryRecorder(log)
	engine := tripunit.New(s.Settings,
		tripunit.WithLogger(log),
		tripunit.WithRecorder(rec),
		tripunit.WithActuator(breaker{log}),
	)

	store, closeStore, err := openStore(o.name)
	if err != nil {
		return o, err
	}
	defer closeStore()

	if err := engine.RestoreThermal(ctx, capFraction, store, charger{log}); err != nil {
		log.Warn("thermal memory not restored", zap.Error(err))
	}

	o.result, err = emulator.Run(ctx, s, engine)
	if err != nil {
		return o, fmt.Errorf("%s: %w", o.name, err)
	}
	o.causes = engine.Flags().Causes
	o.events = len(rec.Events())
	o.duration = float64(o.result.Samples) / (float64(s.Settings.System.Frequency) * metering.SamplesPerCycle)

	if err := engine.SaveThermal(ctx, store); err != nil {
		log.Warn("thermal memory not saved", zap.Error(err))
	}
	return o, nil
}

func scenarioName(s *emulator.Scenario, path string) string {
	if s.Name != "" {
		return s.Name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// openStore returns the thermal-memory store of a scenario and a function
// closing it.
func openStore(name string) (thermal.Store, func(), error) {
	if redisAddr == "" {
		return thermal.NewMemoryStore(thermal.Record{}), func() {}, nil
	}
	cfg := thermal.DefaultRedisConfig(redisAddr)
	cfg.Key += ":" + name
	store, err := thermal.NewRedisStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// charger logs when the thermal-memory capacitor would be charged.
type charger struct {
	logger *zap.Logger
}

func (c charger) EnableCharging() {
	c.logger.Debug("thermal-memory capacitor charging")
}

// breaker logs the trip unit's outputs to the breaker mechanism.
type breaker struct {
	logger *zap.Logger
}

func (b breaker) Open(c trip.Cause) {
	b.logger.Warn("breaker opened", zap.Stringer("cause", c))
}

func (b breaker) Transient(active bool) {
	b.logger.Debug("transient actuator", zap.Bool("active", active))
}

func printOutcomes(w io.Writer, outcomes []outcome) {
	for _, o := range outcomes {
		switch {
		case o.name == "":
			fmt.Fprintf(w, "%-30s  not run\n", o.path)
		case o.result.Tripped():
			fmt.Fprintf(w, "%-30s  tripped at %7.3fs  %-24s  %d events\n", o.name, o.result.FirstTrip(), o.causes, o.events)
		default:
			fmt.Fprintf(w, "%-30s  no trip in %7.3fs  %d events\n", o.name, o.duration, o.events)
		}
	}
}
