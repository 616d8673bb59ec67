package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/synaptecltd/tripunit/settings"
	"go.uber.org/zap"
)

// configurer accepts new settings while protection runs.
type configurer interface {
	Configure(s settings.Settings) error
}

// settingsWatcher reloads a settings file into an engine whenever the file
// is written.
type settingsWatcher struct {
	path     string
	target   configurer
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
}

// newSettingsWatcher starts watching the directory holding path. Events are
// not handled until Run is called.
func newSettingsWatcher(path string, target configurer, logger *zap.Logger) (*settingsWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving settings path: %w", err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// editors replace files, so watch the directory
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(absPath), err)
	}
	return &settingsWatcher{
		path:     absPath,
		target:   target,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		watcher:  fsWatcher,
	}, nil
}

// Run handles file events until ctx is done.
func (w *settingsWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != w.path {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("settings watcher", zap.Error(err))
		}
	}
}

func (w *settingsWatcher) reload() {
	s, err := settings.Load(w.path)
	if err != nil {
		w.logger.Error("settings not reloaded", zap.Error(err))
		return
	}
	if err := w.target.Configure(s); err != nil {
		w.logger.Warn("reloaded settings partly replaced", zap.Error(err))
		return
	}
	w.logger.Info("settings reloaded", zap.String("path", w.path))
}
