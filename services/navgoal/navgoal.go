// Package navgoal turns fiducial detections from the two front cameras into navigation goals in
// the map frame and publishes the freshest one at a fixed rate.
package navgoal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/navgoal/bus"
	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/marker"
	"go.viam.com/navgoal/referenceframe"
	"go.viam.com/navgoal/ros"
	"go.viam.com/navgoal/web"
)

// Deps are what a Service needs from the rest of the process.
type Deps struct {
	Bus        bus.Bus
	Transforms referenceframe.TransformProvider
	Store      *config.Store
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Sinks receive every published goal after it is on the bus.
	Sinks []GoalSink
}

// Service is the goal node. Detection handlers for the two sides and the publish tick may run
// concurrently.
type Service struct {
	logger      logging.Logger
	sideLoggers map[goal.Side]logging.Logger

	bus        bus.Bus
	transforms referenceframe.TransformProvider
	store      *config.Store
	clock      clock.Clock
	sinks      []GoalSink

	// read once at construction
	goalTopic    string
	markerTopics map[goal.Side]string
	period       time.Duration

	trackers map[goal.Side]*goal.Tracker
	docking  goal.DockingStatus

	seq        atomic.Uint32
	published  atomic.Uint64
	lastReason atomic.String

	mu      sync.Mutex
	subs    []bus.Subscription
	workers *utils.StoppableWorkers
	closed  bool
}

// New returns a service that has not subscribed to anything yet. Call Start to run it.
func New(deps Deps, logger logging.Logger) (*Service, error) {
	switch {
	case deps.Bus == nil:
		return nil, errors.New("navgoal requires a bus")
	case deps.Transforms == nil:
		return nil, errors.New("navgoal requires a transform provider")
	case deps.Store == nil || deps.Store.Get() == nil:
		return nil, errors.New("navgoal requires a config")
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	cfg := deps.Store.Get()

	s := &Service{
		logger:       logger,
		sideLoggers:  map[goal.Side]logging.Logger{},
		bus:          deps.Bus,
		transforms:   deps.Transforms,
		store:        deps.Store,
		clock:        deps.Clock,
		sinks:        deps.Sinks,
		goalTopic:    cfg.GoalTopic,
		markerTopics: map[goal.Side]string{},
		period:       cfg.PublishPeriod(),
		trackers:     map[goal.Side]*goal.Tracker{},
	}
	for _, side := range goal.Sides {
		s.sideLoggers[side] = logger.Sublogger(side.String())
		s.markerTopics[side] = cfg.MarkerTopic(side)
		s.trackers[side] = goal.NewTracker(side)
	}
	return s, nil
}

// Subscribe attaches one detection handler per side. Both sides may share a topic, in which case
// each handler sees every message and keeps only its own marker.
func (s *Service) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked()
}

func (s *Service) subscribeLocked() error {
	if s.closed {
		return errors.New("navgoal service is closed")
	}
	for _, side := range goal.Sides {
		sub, err := s.bus.Subscribe(s.markerTopics[side], s.markerHandler(side))
		if err != nil {
			return errors.Wrapf(err, "cannot subscribe %s detections", side)
		}
		s.subs = append(s.subs, sub)
		s.sideLoggers[side].Infow("listening for detections", "topic", s.markerTopics[side])
	}
	return nil
}

// Start subscribes to detections and starts publishing goals.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers != nil {
		return errors.New("navgoal service already started")
	}
	if err := s.subscribeLocked(); err != nil {
		return err
	}
	ticker := s.clock.Ticker(s.period)
	s.workers = utils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		defer ticker.Stop()
		s.publishLoop(ctx, ticker.C)
	})
	s.logger.Infow("publishing goals", "topic", s.goalTopic, "period", s.period)
	return nil
}

func (s *Service) publishLoop(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
		if _, err := s.PublishTick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warnw("failed to publish goal", "error", err)
		}
	}
}

func (s *Service) markerHandler(side goal.Side) bus.Handler {
	logger := s.sideLoggers[side]
	return func(ctx context.Context, msg bus.Message) {
		var pa ros.PoseArray
		if err := json.Unmarshal(msg.Data, &pa); err != nil {
			logger.Warnw("dropping malformed detection message", "topic", msg.Topic, "error", err)
			return
		}
		s.HandleDetections(ctx, side, pa.Batch())
	}
}

// HandleDetections folds one detector batch into side's goal and returns how many detections
// matched. When the camera cannot be placed in the map the batch is dropped and nothing changes.
func (s *Service) HandleDetections(ctx context.Context, side goal.Side, batch marker.Batch) int {
	cfg := s.store.Get()
	logger := s.sideLoggers[side]

	matches := batch.Matching(cfg.DesiredMarkerID(side))
	if len(matches) == 0 {
		return 0
	}

	cameraFrame := cfg.CameraFrame(side)
	tf, err := s.transforms.LookupTransform(ctx, cfg.MapFrame, cameraFrame, time.Time{}, cfg.TransformTimeout)
	if err != nil {
		logger.Warnw("cannot place camera in map, dropping detections",
			"map_frame", cfg.MapFrame, "camera_frame", cameraFrame, "error", err)
		return 0
	}

	offsets := cfg.Offsets()
	evaluator := cfg.DockingEvaluator()
	tracker := s.trackers[side]
	for _, det := range matches {
		now := s.clock.Now()
		p := goal.Project(det, tf.Pose, offsets, side, cfg.MapFrame, now)
		docking := evaluator.Docking(p.Longitudinal)
		s.docking.Set(docking)
		tracker.Update(p.Goal, now)
		logger.Debugw("goal updated", "detected_at", det.Stamp, "goal", p.Goal.String(),
			"longitudinal", p.Longitudinal, "docking", docking)
	}
	return len(matches)
}

// PublishTick runs one publish cycle: it picks a side and, unless the pick is nothing, publishes
// that side's goal and hands it to the sinks.
func (s *Service) PublishTick(ctx context.Context) (goal.Selection, error) {
	cfg := s.store.Get()
	now := s.clock.Now()
	staleness := cfg.Staleness()
	sel := goal.Select(
		s.trackers[goal.Left].Snapshot(now, staleness),
		s.trackers[goal.Right].Snapshot(now, staleness),
		s.docking.Docking(),
	)
	s.lastReason.Store(string(sel.Reason))
	if !sel.Emit {
		s.logger.Debugw("no goal to publish", "reason", sel.Reason)
		return sel, nil
	}

	msg := ros.NewPoseStamped(sel.Goal, s.seq.Inc())
	if err := bus.PublishJSON(ctx, s.bus, s.goalTopic, msg); err != nil {
		return sel, errors.Wrapf(err, "cannot publish %s goal", sel.Side)
	}
	s.published.Inc()
	s.logger.Debugw("published goal", "side", sel.Side, "reason", sel.Reason, "seq", msg.Header.Seq)

	var sinkErr error
	for _, sink := range s.sinks {
		sinkErr = multierr.Combine(sinkErr, sink.GoalPublished(ctx, sel, msg, now))
	}
	return sel, sinkErr
}

// Status reports both sides as of now.
func (s *Service) Status() web.Status {
	now := s.clock.Now()
	staleness := s.store.Get().Staleness()
	st := web.Status{
		Docking:    s.docking.Docking(),
		Published:  s.published.Load(),
		LastReason: s.lastReason.Load(),
	}
	for _, side := range goal.Sides {
		st.Sides = append(st.Sides, web.NewSideStatus(s.trackers[side].Snapshot(now, staleness)))
	}
	return st
}

// Close stops publishing and unsubscribes. It does not close the bus.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.workers != nil {
		s.workers.Stop()
	}
	var err error
	for _, sub := range s.subs {
		err = multierr.Combine(err, sub.Unsubscribe())
	}
	s.subs = nil
	return err
}
