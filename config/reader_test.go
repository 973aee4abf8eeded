package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/marker"
	spatial "go.viam.com/navgoal/spatialmath"
)

const fullConfig = `
map_frame: world
camera_front_left_frame: cam_left
camera_front_right_frame: cam_right
desired_aruco_marker_id_left: 7
desired_aruco_marker_id_right: 3
aruco_distance_offset: -0.4
aruco_left_right_offset: 0.1
marker_topic_front_left: aruco/left
marker_topic_front_right: aruco/right
goal_topic: nav/goal
tf_topic: tf
publish_rate_hz: 4
marker_delay_threshold_sec: 1.5
goal_distance_threshold: 0.25
transform_timeout: 500ms
transform_cache_duration: 30s
static_transforms:
  - parent: base_link
    child: cam_left
    translation: {x: 0.2, y: 0.1, z: 0.3}
    orientation:
      rpy_degrees: {roll: 0, pitch: 0, yaw: 90}
  - parent: base_link
    child: cam_right
    translation: {x: 0.2, y: -0.1, z: 0.3}
    orientation:
      quaternion: {x: 0, y: 0, z: 0, w: 3}
nats_url: nats://localhost:4222
monitor_address: localhost:8090
history_path: /tmp/goals.db
log_level: debug
`

func TestDefaults(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(""))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Default())

	test.That(t, cfg.MapFrame, test.ShouldEqual, "map")
	test.That(t, cfg.CameraFrame(goal.Left), test.ShouldEqual, "camera_rgb_frame")
	test.That(t, cfg.CameraFrame(goal.Right), test.ShouldEqual, "camera_rgb_frame")
	test.That(t, cfg.MarkerTopic(goal.Left), test.ShouldEqual, "aruco_detect/markers_front")
	test.That(t, cfg.MarkerTopic(goal.Right), test.ShouldEqual, "aruco_detect/markers_front")
	test.That(t, cfg.GoalTopic, test.ShouldEqual, "goal_pose")
	test.That(t, cfg.DesiredMarkerID(goal.Left), test.ShouldEqual, marker.NoID)
	test.That(t, cfg.DesiredMarkerID(goal.Right), test.ShouldEqual, marker.NoID)
	test.That(t, cfg.Offsets(), test.ShouldResemble, goal.Offsets{Longitudinal: -0.5})
	test.That(t, cfg.DockingEvaluator().Threshold, test.ShouldEqual, 0.3)
	test.That(t, cfg.PublishPeriod(), test.ShouldEqual, time.Second)
	test.That(t, cfg.Staleness(), test.ShouldEqual, time.Second)
	test.That(t, cfg.TransformTimeout, test.ShouldEqual, 2*time.Second)
	test.That(t, cfg.TransformCacheDuration, test.ShouldEqual, 10*time.Second)
}

func TestFromReader(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(fullConfig))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.MapFrame, test.ShouldEqual, "world")
	test.That(t, cfg.CameraFrame(goal.Right), test.ShouldEqual, "cam_right")
	test.That(t, cfg.DesiredMarkerID(goal.Left), test.ShouldEqual, marker.ID(7))
	test.That(t, cfg.DesiredMarkerID(goal.Right), test.ShouldEqual, marker.ID(3))
	test.That(t, cfg.Offsets(), test.ShouldResemble, goal.Offsets{Longitudinal: -0.4, Lateral: 0.1})
	test.That(t, cfg.MarkerTopic(goal.Right), test.ShouldEqual, "aruco/right")
	test.That(t, cfg.PublishPeriod(), test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.Staleness(), test.ShouldEqual, 1500*time.Millisecond)
	test.That(t, cfg.TransformTimeout, test.ShouldEqual, 500*time.Millisecond)
	test.That(t, cfg.TransformCacheDuration, test.ShouldEqual, 30*time.Second)
	test.That(t, cfg.NATSURL, test.ShouldEqual, "nats://localhost:4222")
	test.That(t, cfg.HistoryPath, test.ShouldEqual, "/tmp/goals.db")

	test.That(t, cfg.StaticTransforms, test.ShouldHaveLength, 2)
	left := cfg.StaticTransforms[0].Transform()
	test.That(t, left.Parent, test.ShouldEqual, "base_link")
	test.That(t, left.Child, test.ShouldEqual, "cam_left")
	test.That(t, left.Pose.Point().Y, test.ShouldEqual, 0.1)
	_, _, yaw := spatial.QuatToRPY(left.Pose.Orientation())
	test.That(t, yaw, test.ShouldAlmostEqual, math.Pi/2)

	right := cfg.StaticTransforms[1].Transform()
	test.That(t, right.Pose.Orientation(), test.ShouldResemble, spatial.IdentityQuaternion)

	none := StaticTransform{Parent: "a", Child: "b"}.Transform()
	test.That(t, none.Pose.Orientation(), test.ShouldResemble, spatial.IdentityQuaternion)
}

func TestNegativeIDsMatchNothing(t *testing.T) {
	cfg, err := FromReader(strings.NewReader("desired_aruco_marker_id_left: -5\ndesired_aruco_marker_id_right: 0\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DesiredMarkerID(goal.Left), test.ShouldEqual, marker.NoID)
	test.That(t, cfg.DesiredMarkerID(goal.Right), test.ShouldEqual, marker.ID(0))
}

func TestFromReaderErrors(t *testing.T) {
	for _, tc := range []struct {
		name, yaml, expected string
	}{
		{"unknown key", "aruco_right_offset: 1\n", "aruco_right_offset"},
		{"bad yaml", "map_frame: [\n", "cannot parse config"},
		{"empty map frame", "map_frame: \"/\"\n", "map_frame"},
		{"zero rate", "publish_rate_hz: 0\n", "publish_rate_hz"},
		{"negative staleness", "marker_delay_threshold_sec: -1\n", "marker_delay_threshold_sec"},
		{"rate too high", "publish_rate_hz: 1e10\n", "publish_rate_hz"},
		{"rate too low", "publish_rate_hz: 1e-10\n", "publish_rate_hz"},
		{"staleness too short", "marker_delay_threshold_sec: 1e-10\n", "marker_delay_threshold_sec"},
		{"staleness too long", "marker_delay_threshold_sec: 1e11\n", "marker_delay_threshold_sec"},
		{"nan offset", "aruco_distance_offset: .nan\n", "aruco_distance_offset"},
		{"negative timeout", "transform_timeout: -1s\n", "transform_timeout"},
		{"bad duration", "transform_timeout: soon\n", "cannot parse config"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"missing child", "static_transforms:\n  - parent: base\n", "static_transforms.0.child"},
		{"self parent", "static_transforms:\n  - {parent: base, child: /base}\n", "static_transforms.0.child"},
		{
			"two orientations",
			"static_transforms:\n  - parent: a\n    child: b\n    orientation:\n      quaternion: {w: 1}\n      rpy_degrees: {yaw: 1}\n",
			"not both",
		},
		{
			"zero quaternion",
			"static_transforms:\n  - parent: a\n    child: b\n    orientation:\n      quaternion: {w: 0}\n",
			"orientation.quaternion",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader(strings.NewReader(tc.yaml))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "navgoal.yaml")
	test.That(t, os.WriteFile(path, []byte(fullConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.GoalTopic, test.ShouldEqual, "nav/goal")

	_, err = Read(filepath.Join(dir, "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read config file")
}

func TestDurationLimits(t *testing.T) {
	cfg, err := FromReader(strings.NewReader("publish_rate_hz: 1e9\nmarker_delay_threshold_sec: 1e9\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.PublishPeriod(), test.ShouldEqual, time.Nanosecond)
	test.That(t, cfg.Staleness(), test.ShouldEqual, 1e9*time.Second)
}

func TestReadExpandsEnvironment(t *testing.T) {
	t.Setenv("NAVGOAL_TEST_GOAL_TOPIC", "nav/from_env")
	path := filepath.Join(t.TempDir(), "navgoal.yaml")
	test.That(t, os.WriteFile(path, []byte("goal_topic: ${NAVGOAL_TEST_GOAL_TOPIC}\nmap_frame: ${NAVGOAL_TEST_UNSET:-odom}\n"), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.GoalTopic, test.ShouldEqual, "nav/from_env")
	test.That(t, cfg.MapFrame, test.ShouldEqual, "odom")
}

func TestStartupDiff(t *testing.T) {
	old := Default()
	updated := Default()
	test.That(t, StartupDiff(old, updated), test.ShouldBeEmpty)

	updated.DistanceOffset = 1
	updated.DesiredMarkerIDLeft = 4
	updated.MapFrame = "world"
	test.That(t, StartupDiff(old, updated), test.ShouldBeEmpty)

	updated.GoalTopic = "other"
	updated.PublishRateHz = 10
	updated.StaticTransforms = []StaticTransform{{Parent: "a", Child: "b"}}
	test.That(t, StartupDiff(old, updated), test.ShouldResemble, []string{"goal_topic", "publish_rate_hz", "static_transforms"})

	old.StaticTransforms = []StaticTransform{{Parent: "a", Child: "b", Orientation: Orientation{RPY: &RPY{Yaw: 1}}}}
	test.That(t, StartupDiff(old, updated), test.ShouldResemble, []string{"goal_topic", "publish_rate_hz", "static_transforms"})
}
