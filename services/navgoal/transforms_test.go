package navgoal

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/navgoal/bus"
	"go.viam.com/navgoal/config"
	"go.viam.com/navgoal/logging"
	"go.viam.com/navgoal/referenceframe"
	"go.viam.com/navgoal/ros"
)

func tfMessage(stamp time.Time, parent, child string, x float64) ros.TFMessage {
	return ros.TFMessage{Transforms: []ros.TransformStamped{{
		Header:       ros.Header{Stamp: ros.NewTime(stamp), FrameID: parent},
		ChildFrameID: child,
		Transform: ros.TransformMsg{
			Translation: ros.Point{X: x},
			Rotation:    ros.Quaternion{W: 1},
		},
	}}}
}

func TestLoadStaticTransforms(t *testing.T) {
	cfg := config.Default()
	cfg.StaticTransforms = []config.StaticTransform{
		{Parent: "base_link", Child: "camera_left", Translation: config.Translation{Y: 0.2}},
		{Parent: "/map", Child: "/base_link", Translation: config.Translation{X: 1}},
	}
	buf := referenceframe.NewBuffer()
	test.That(t, LoadStaticTransforms(buf, cfg), test.ShouldBeNil)

	tf, err := buf.LookupTransform(context.Background(), "map", "camera_left", time.Time{}, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Pose.Point().X, test.ShouldAlmostEqual, 1.)
	test.That(t, tf.Pose.Point().Y, test.ShouldAlmostEqual, 0.2)

	cfg.StaticTransforms = append(cfg.StaticTransforms, config.StaticTransform{Parent: "camera_left", Child: "map"})
	err = LoadStaticTransforms(referenceframe.NewBuffer(), cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "static transform 2 (camera_left -> map)")
}

func TestSubscribeTransforms(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	ctx := context.Background()
	b := bus.NewMemoryBus()
	defer func() {
		test.That(t, b.Close(), test.ShouldBeNil)
	}()
	buf := referenceframe.NewBuffer()

	sub, err := SubscribeTransforms(b, "tf", buf, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, bus.PublishJSON(ctx, b, "/tf", tfMessage(t0, "/odom", "/base_link", 2)), test.ShouldBeNil)
	tf, err := buf.LookupTransform(ctx, "odom", "base_link", time.Time{}, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Pose.Point().X, test.ShouldAlmostEqual, 2.)
	test.That(t, tf.Stamp.Equal(t0), test.ShouldBeTrue)

	// a bad transform is skipped without dropping the good ones beside it
	mixed := tfMessage(t0.Add(time.Second), "odom", "base_link", 3)
	mixed.Transforms = append(mixed.Transforms, tfMessage(t0, "odom", "odom", 1).Transforms...)
	test.That(t, bus.PublishJSON(ctx, b, "tf", mixed), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("ignoring transform").Len(), test.ShouldEqual, 1)
	tf, err = buf.LookupTransform(ctx, "odom", "base_link", time.Time{}, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Pose.Point().X, test.ShouldAlmostEqual, 3.)

	test.That(t, b.Publish(ctx, "tf", []byte("nope")), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("dropping malformed transform message").Len(), test.ShouldEqual, 1)

	test.That(t, sub.Unsubscribe(), test.ShouldBeNil)
	test.That(t, bus.PublishJSON(ctx, b, "tf", tfMessage(t0, "map", "odom", 1)), test.ShouldBeNil)
	test.That(t, buf.CanTransform("map", "odom", time.Time{}), test.ShouldBeFalse)
}
