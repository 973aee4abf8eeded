package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/navgoal/logging"
)

// DefaultReloadDelay coalesces the burst of events editors produce when saving a file.
const DefaultReloadDelay = 250 * time.Millisecond

// A Watcher reloads a config file into a Store whenever the file changes. Invalid files are
// logged and ignored, leaving the previous config in place.
type Watcher struct {
	path     string
	store    *Store
	logger   logging.Logger
	onChange func(old, updated *Config)

	fsw     *fsnotify.Watcher
	bounce  func(func())
	workers *utils.StoppableWorkers
	closed  atomic.Bool
}

// NewWatcher starts watching path. onChange, if not nil, is called after every successful reload.
func NewWatcher(
	path string,
	store *Store,
	delay time.Duration,
	logger logging.Logger,
	onChange func(old, updated *Config),
) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve config path %s", path)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create config watcher")
	}
	// editors replace files by renaming over them, which only the directory sees
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		utils.UncheckedError(fsw.Close())
		return nil, errors.Wrapf(err, "cannot watch %s", filepath.Dir(abs))
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	w := &Watcher{
		path:     abs,
		store:    store,
		logger:   logger,
		onChange: onChange,
		fsw:      fsw,
		bounce:   debounce.New(delay),
	}
	w.workers = utils.NewBackgroundStoppableWorkers(w.watch)
	return w, nil
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debugw("config file event", "op", strings.ToLower(ev.Op.String()))
			w.bounce(w.reloadIfOpen)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reloadIfOpen() {
	if w.closed.Load() {
		return
	}
	utils.UncheckedError(w.Reload())
}

// Reload reads the file now. On error the current config is kept and the error returned.
func (w *Watcher) Reload() error {
	cfg, err := Read(w.path)
	if err != nil {
		w.logger.Warnw("ignoring invalid config, keeping the previous one", "path", w.path, "error", err)
		return err
	}
	old := w.store.Swap(cfg)
	if changed := StartupDiff(old, cfg); len(changed) > 0 {
		w.logger.Warnw("config keys changed that only take effect on restart", "keys", changed)
	}
	w.logger.Infow("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.closed.Store(true)
	w.workers.Stop()
	return w.fsw.Close()
}
