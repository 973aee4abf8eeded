package navgoal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/navgoal/bus"
	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/referenceframe"
	"go.viam.com/navgoal/ros"
)

// ReplayTopics returns the topics a replay reads from a bag.
func ReplayTopics(cfg *config.Config) []string {
	return []string{cfg.MarkerTopic(goal.Left), cfg.MarkerTopic(goal.Right), cfg.TFTopic}
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Messages int
	Ticks    int
	Goals    []ros.PoseStamped
}

// Replay runs recorded traffic through the goal node on an in-process bus. A mock clock is moved
// to each message's record time, and the publish tick runs at every period boundary passed on
// the way, so the goals come out as they would have on the robot. Transform lookups never wait.
func Replay(ctx context.Context, cfg *config.Config, msgs []ros.BagMessage, logger logging.Logger) (res ReplayResult, err error) {
	if len(msgs) == 0 {
		return res, errors.New("nothing to replay")
	}
	replayCfg := *cfg
	replayCfg.TransformTimeout = 0

	mock := clock.NewMock()
	mock.Set(msgs[0].Stamp)

	buf := referenceframe.NewBuffer(
		referenceframe.WithClock(mock),
		referenceframe.WithCacheDuration(replayCfg.TransformCacheDuration),
	)
	if err := LoadStaticTransforms(buf, &replayCfg); err != nil {
		return res, err
	}

	b := bus.NewMemoryBus()
	defer func() {
		err = multierr.Combine(err, b.Close())
	}()

	goalSub, err := b.Subscribe(replayCfg.GoalTopic, func(ctx context.Context, msg bus.Message) {
		var ps ros.PoseStamped
		if err := json.Unmarshal(msg.Data, &ps); err != nil {
			logger.Warnw("replayed goal did not decode", "error", err)
			return
		}
		res.Goals = append(res.Goals, ps)
	})
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Combine(err, goalSub.Unsubscribe())
	}()

	tfSub, err := SubscribeTransforms(b, replayCfg.TFTopic, buf, logger.Sublogger("tf"))
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Combine(err, tfSub.Unsubscribe())
	}()

	svc, err := New(Deps{Bus: b, Transforms: buf, Store: config.NewStore(&replayCfg), Clock: mock}, logger)
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Combine(err, svc.Close(context.Background()))
	}()
	if err := svc.Subscribe(); err != nil {
		return res, err
	}

	period := replayCfg.PublishPeriod()
	next := mock.Now().Add(period)
	tickUntil := func(until time.Time) error {
		for !next.After(until) {
			mock.Set(next)
			if _, err := svc.PublishTick(ctx); err != nil {
				return err
			}
			res.Ticks++
			next = next.Add(period)
		}
		return nil
	}

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := tickUntil(msg.Stamp); err != nil {
			return res, err
		}
		if msg.Stamp.After(mock.Now()) {
			mock.Set(msg.Stamp)
		}
		if err := b.Publish(ctx, msg.Topic, msg.Data); err != nil {
			return res, errors.Wrapf(err, "cannot replay message on %s", msg.Topic)
		}
		res.Messages++
	}
	// one more tick publishes what the last detections produced
	if err := tickUntil(next); err != nil {
		return res, err
	}
	return res, nil
}
