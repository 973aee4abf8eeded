package navgoal

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/navgoal/bus"
	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/recorder"
	"go.viam.com/navgoal/referenceframe"
	"go.viam.com/navgoal/web"
)

const shutdownTimeout = 5 * time.Second

// RunOptions configure Run.
type RunOptions struct {
	ConfigPath string
	// NATSURL overrides nats_url from the config file.
	NATSURL string
	Debug   bool
}

// Run starts the goal node with everything the config asks for and blocks until ctx is done.
func Run(ctx context.Context, opts RunOptions, logger logging.Logger) (err error) {
	cfg, err := config.Read(opts.ConfigPath)
	if err != nil {
		return err
	}
	config.ApplyLogLevel(logger, cfg, opts.Debug)
	store := config.NewStore(cfg)
	clk := clock.New()

	// closers run in reverse order on the way out
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Combine(err, closers[i]())
		}
	}()

	natsURL := cfg.NATSURL
	if opts.NATSURL != "" {
		natsURL = opts.NATSURL
	}
	b, err := bus.NewNATSBus(bus.NATSConfig{URL: natsURL}, logger.Sublogger("bus"))
	if err != nil {
		return err
	}
	closers = append(closers, b.Close)

	buf := referenceframe.NewBuffer(
		referenceframe.WithClock(clk),
		referenceframe.WithCacheDuration(cfg.TransformCacheDuration),
	)
	if err := LoadStaticTransforms(buf, cfg); err != nil {
		return err
	}
	tfSub, err := SubscribeTransforms(b, cfg.TFTopic, buf, logger.Sublogger("tf"))
	if err != nil {
		return err
	}
	closers = append(closers, tfSub.Unsubscribe)

	var (
		sinks   []GoalSink
		history web.HistorySource
	)
	if cfg.HistoryPath != "" {
		rec, err := recorder.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		closers = append(closers, rec.Close)
		sinks = append(sinks, RecorderSink(rec))
		history = rec
		logger.Infow("recording goal history", "path", cfg.HistoryPath)
	}

	var svc *Service
	var monitor *web.Server
	if cfg.MonitorAddress != "" {
		monitor = web.NewServer(web.StatusFunc(func() web.Status { return svc.Status() }), history, clk, logger.Sublogger("web"))
		sinks = append(sinks, MonitorSink(monitor))
	}

	svc, err = New(Deps{Bus: b, Transforms: buf, Store: store, Clock: clk, Sinks: sinks}, logger.Sublogger("navgoal"))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return multierr.Combine(err, svc.Close(ctx))
	}
	closers = append(closers, func() error { return svc.Close(context.Background()) })

	if monitor != nil {
		if err := monitor.Start(cfg.MonitorAddress); err != nil {
			return err
		}
		closers = append(closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return monitor.Close(shutdownCtx)
		})
	}

	if cfg.ConfigFilePath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigFilePath, store, config.DefaultReloadDelay, logger.Sublogger("config"),
			func(old, updated *config.Config) {
				config.ApplyLogLevel(logger, updated, opts.Debug)
			})
		if err != nil {
			return errors.Wrap(err, "cannot watch config for changes")
		}
		closers = append(closers, watcher.Close)
	}

	logger.Info("navgoal running")
	<-ctx.Done()
	logger.Info("navgoal shutting down")
	return nil
}
