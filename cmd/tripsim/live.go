package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/synaptecltd/tripunit"
	"github.com/synaptecltd/tripunit/emulator"
	"github.com/synaptecltd/tripunit/metering"
	"github.com/synaptecltd/tripunit/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var settingsPath string

var liveCmd = &cobra.Command{
	Use:   "live FILE",
	Short: "Run a scenario in real time, reloading settings as they change",
	Long: `Run one scenario paced at the system frequency for its whole duration.
The settings file replaces the scenario's settings, and is reloaded into the
running engine every time it is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runLive,
}

func init() {
	liveCmd.Flags().StringVar(&settingsPath, "settings", "", "trip unit settings file to watch")
	liveCmd.MarkFlagRequired("settings")
}

func runLive(cmd *cobra.Command, args []string) error {
	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := emulator.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if s.Settings, err = settings.Load(settingsPath); err != nil {
		return err
	}
	log := logger.With(zap.String("scenario", scenarioName(s, args[0])))

	engine := tripunit.New(s.Settings,
		tripunit.WithLogger(log),
		tripunit.WithActuator(breaker{log}),
	)
	watcher, err := newSettingsWatcher(settingsPath, engine, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()

	g, gctx := errgroup.WithContext(watchCtx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})

	var res emulator.Result
	g.Go(func() error {
		defer stopWatching()
		var cycles int
		r, err := emulator.Run(gctx, s, engine,
			emulator.RealTime(),
			emulator.UntilEnd(),
			emulator.EveryCycle(func(c *metering.Cycle) {
				cycles++
				if cycles%int(s.Settings.System.Frequency) != 0 {
					return
				}
				log.Debug("cycle",
					zap.Float64s("rms", c.Current[:]),
					zap.Float64("frequency", c.Frequency),
					zap.Stringer("trips", engine.Flags().Causes),
					zap.Stringer("alarms", engine.Flags().Alarms))
			}),
		)
		res = r
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d samples, %d trips\n", res.Samples, len(res.Trips))
	return nil
}
