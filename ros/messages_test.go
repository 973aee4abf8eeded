package ros

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/navgoal/goal"
	spatial "go.viam.com/navgoal/spatialmath"
)

const detectorJSON = `{
  "header": {"seq": 12, "stamp": {"secs": 1714564800, "nsecs": 250000000}, "frame_id": "/aruco_marker_7"},
  "poses": [
    {"position": {"x": 1.5, "y": -0.2, "z": 0.1}, "orientation": {"x": 0, "y": 0, "z": 0, "w": 1}},
    {"position": {"x": 2.0, "y": 0.3, "z": 0.0}, "orientation": {"x": 0, "y": 0, "z": 1, "w": 0}}
  ]
}`

func TestPoseArrayBatch(t *testing.T) {
	var pa PoseArray
	test.That(t, json.Unmarshal([]byte(detectorJSON), &pa), test.ShouldBeNil)

	b := pa.Batch()
	test.That(t, b.FrameID, test.ShouldEqual, "aruco_marker_7")
	test.That(t, b.Stamp, test.ShouldEqual, time.Date(2024, 5, 1, 12, 0, 0, 250000000, time.UTC))
	test.That(t, b.Detections, test.ShouldHaveLength, 2)
	test.That(t, b.Detections[0].Position, test.ShouldResemble, r3.Vector{X: 1.5, Y: -0.2, Z: 0.1})
	test.That(t, b.Detections[1].Orientation.Kmag, test.ShouldEqual, 1.)
	test.That(t, b.Detections[1].Stamp, test.ShouldEqual, b.Stamp)
	test.That(t, b.Matching(7), test.ShouldHaveLength, 2)

	back := NewPoseArray(b)
	test.That(t, back.Header.FrameID, test.ShouldEqual, "aruco_marker_7")
	if diff := cmp.Diff(pa.Poses, back.Poses); diff != "" {
		t.Errorf("poses differ (-want +got):\n%s", diff)
	}
}

func TestPoseStampedFromGoal(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 0, 1, 5, time.UTC)
	g := goal.GoalPose{
		Stamp:   stamp,
		FrameID: "map",
		Pose:    spatial.NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, spatial.QuatFromRPY(0, 0, math.Pi/2)),
	}
	ps := NewPoseStamped(g, 4)

	raw, err := json.Marshal(ps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(raw), test.ShouldContainSubstring, `"frame_id":"map"`)
	test.That(t, string(raw), test.ShouldContainSubstring, `"stamp":{"secs":1714564801,"nsecs":5}`)

	var decoded PoseStamped
	test.That(t, json.Unmarshal(raw, &decoded), test.ShouldBeNil)
	if diff := cmp.Diff(ps, decoded); diff != "" {
		t.Errorf("message changed on the wire (-want +got):\n%s", diff)
	}

	back := decoded.GoalPose()
	test.That(t, back.Stamp.Equal(stamp), test.ShouldBeTrue)
	test.That(t, back.FrameID, test.ShouldEqual, "map")
	test.That(t, spatial.PoseAlmostEqual(back.Pose, g.Pose, 1e-12), test.ShouldBeTrue)
}

func TestTransformStamped(t *testing.T) {
	const tfJSON = `{"transforms": [
	  {"header": {"stamp": {"secs": 0, "nsecs": 0}, "frame_id": "/map"},
	   "child_frame_id": "/odom",
	   "transform": {"translation": {"x": 1, "y": 0, "z": 0}, "rotation": {"x": 0, "y": 0, "z": 0, "w": 2}}}
	]}`
	var msg TFMessage
	test.That(t, json.Unmarshal([]byte(tfJSON), &msg), test.ShouldBeNil)
	test.That(t, msg.Transforms, test.ShouldHaveLength, 1)

	tf := msg.Transforms[0].FrameTransform()
	test.That(t, tf.Parent, test.ShouldEqual, "map")
	test.That(t, tf.Child, test.ShouldEqual, "odom")
	test.That(t, tf.Stamp.IsZero(), test.ShouldBeTrue)
	test.That(t, tf.Pose.Point().X, test.ShouldEqual, 1.)
	test.That(t, tf.Pose.Orientation(), test.ShouldResemble, spatial.IdentityQuaternion)
}

func TestTopicKey(t *testing.T) {
	test.That(t, topicKey("/aruco_detect/markers_front"), test.ShouldEqual, "aruco_detect_markers_front")
	test.That(t, topicKey("Goal_Pose"), test.ShouldEqual, "goal_pose")
}
