package navgoal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/ros"
)

func bagMessage(t *testing.T, topic string, stamp time.Time, v interface{}) ros.BagMessage {
	t.Helper()
	data, err := json.Marshal(v)
	test.That(t, err, test.ShouldBeNil)
	return ros.BagMessage{Topic: topic, Stamp: stamp, Data: data}
}

func TestReplay(t *testing.T) {
	cfg := testConfig()
	logger := logging.NewTestLogger(t)

	test.That(t, ReplayTopics(cfg), test.ShouldResemble,
		[]string{config.DefaultMarkerTopic, config.DefaultMarkerTopic, config.DefaultTFTopic})

	msgs := []ros.BagMessage{
		bagMessage(t, cfg.TFTopic, t0, tfMessage(t0, "map", "camera_left", 1)),
		bagMessage(t, cfg.MarkerTopicFrontLeft, t0.Add(100*time.Millisecond),
			ros.NewPoseArray(batch("aruco_marker_7", r3.Vector{X: 2}))),
		// right camera has no transform yet, so this one is dropped
		bagMessage(t, cfg.MarkerTopicFrontRight, t0.Add(200*time.Millisecond),
			ros.NewPoseArray(batch("aruco_marker_3", r3.Vector{X: 2}))),
		bagMessage(t, cfg.MarkerTopicFrontLeft, t0.Add(1500*time.Millisecond),
			ros.NewPoseArray(batch("aruco_marker_7", r3.Vector{X: 3}))),
	}

	res, err := Replay(context.Background(), cfg, msgs, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Messages, test.ShouldEqual, 4)
	// ticks at t0+1s and t0+2s
	test.That(t, res.Ticks, test.ShouldEqual, 2)
	test.That(t, res.Goals, test.ShouldHaveLength, 2)

	first, second := res.Goals[0], res.Goals[1]
	test.That(t, first.Header.Seq, test.ShouldEqual, uint32(1))
	test.That(t, first.Header.Stamp.Time().Equal(t0.Add(100*time.Millisecond)), test.ShouldBeTrue)
	test.That(t, first.Pose.Position.X, test.ShouldAlmostEqual, 2.5)
	test.That(t, first.Pose.Position.Y, test.ShouldAlmostEqual, 0.2)
	test.That(t, second.Header.Seq, test.ShouldEqual, uint32(2))
	test.That(t, second.Pose.Position.X, test.ShouldAlmostEqual, 3.5)

	// the caller's config is not touched
	test.That(t, cfg.TransformTimeout, test.ShouldNotEqual, time.Duration(0))
}

func TestReplayEmpty(t *testing.T) {
	_, err := Replay(context.Background(), testConfig(), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplayCanceled(t *testing.T) {
	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, cfg, []ros.BagMessage{
		bagMessage(t, cfg.TFTopic, t0, tfMessage(t0, "map", "camera_left", 1)),
	}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
