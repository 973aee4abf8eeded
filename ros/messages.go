package ros

import (
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navgoal/goal"
	"go.viam.com/navgoal/marker"
	"go.viam.com/navgoal/referenceframe"
	spatial "go.viam.com/navgoal/spatialmath"
)

// Time is a ROS time stamp.
type Time struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// NewTime converts t to a ROS time stamp. The zero time maps to the zero stamp.
func NewTime(t time.Time) Time {
	if t.IsZero() {
		return Time{}
	}
	return Time{Secs: t.Unix(), Nsecs: int64(t.Nanosecond())}
}

// Time returns the stamp as a time.Time. The zero stamp maps to the zero time, which transform
// lookups read as "latest".
func (t Time) Time() time.Time {
	if t.Secs == 0 && t.Nsecs == 0 {
		return time.Time{}
	}
	return time.Unix(t.Secs, t.Nsecs).UTC()
}

// Header is std_msgs/Header.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Point is geometry_msgs/Point, also used for geometry_msgs/Vector3.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is geometry_msgs/Pose.
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseArray is geometry_msgs/PoseArray, the shape marker detectors publish.
type PoseArray struct {
	Header Header `json:"header"`
	Poses  []Pose `json:"poses"`
}

// PoseStamped is geometry_msgs/PoseStamped, the shape goals are published in.
type PoseStamped struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}

// TransformMsg is geometry_msgs/Transform.
type TransformMsg struct {
	Translation Point      `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

// TransformStamped is geometry_msgs/TransformStamped.
type TransformStamped struct {
	Header       Header       `json:"header"`
	ChildFrameID string       `json:"child_frame_id"`
	Transform    TransformMsg `json:"transform"`
}

// TFMessage is tf2_msgs/TFMessage.
type TFMessage struct {
	Transforms []TransformStamped `json:"transforms"`
}

func (p Point) vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

func pointFromVector(v r3.Vector) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Number converts q to a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// QuaternionFromNumber converts a gonum quaternion.
func QuaternionFromNumber(q quat.Number) Quaternion {
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

// SpatialPose converts p into a spatialmath pose, normalizing the orientation.
func (p Pose) SpatialPose() spatial.Pose {
	return spatial.NewPose(p.Position.vector(), p.Orientation.Number())
}

// PoseFromSpatial converts a spatialmath pose to a message.
func PoseFromSpatial(p spatial.Pose) Pose {
	return Pose{
		Position:    pointFromVector(p.Point()),
		Orientation: QuaternionFromNumber(p.Orientation()),
	}
}

// Batch converts a detector message into a batch of detections. PoseArray carries no per pose
// label so every detection takes the header frame id.
func (pa PoseArray) Batch() marker.Batch {
	stamp := pa.Header.Stamp.Time()
	b := marker.Batch{
		FrameID:    referenceframe.CleanFrameName(pa.Header.FrameID),
		Stamp:      stamp,
		Detections: make([]marker.Detection, 0, len(pa.Poses)),
	}
	for _, p := range pa.Poses {
		b.Detections = append(b.Detections, marker.Detection{
			Position:    p.Position.vector(),
			Orientation: p.Orientation.Number(),
			Stamp:       stamp,
		})
	}
	return b
}

// NewPoseArray builds a detector message from a batch.
func NewPoseArray(b marker.Batch) PoseArray {
	pa := PoseArray{Header: Header{Stamp: NewTime(b.Stamp), FrameID: b.FrameID}}
	for _, det := range b.Detections {
		pa.Poses = append(pa.Poses, Pose{
			Position:    pointFromVector(det.Position),
			Orientation: QuaternionFromNumber(det.Orientation),
		})
	}
	return pa
}

// NewPoseStamped builds the published message for a goal.
func NewPoseStamped(g goal.GoalPose, seq uint32) PoseStamped {
	return PoseStamped{
		Header: Header{Seq: seq, Stamp: NewTime(g.Stamp), FrameID: g.FrameID},
		Pose:   PoseFromSpatial(g.Pose),
	}
}

// GoalPose converts a published goal message back into a goal.
func (ps PoseStamped) GoalPose() goal.GoalPose {
	return goal.GoalPose{
		Stamp:   ps.Header.Stamp.Time(),
		FrameID: ps.Header.FrameID,
		Pose:    ps.Pose.SpatialPose(),
	}
}

// FrameTransform converts the message into a transform of the child frame in the header frame.
func (ts TransformStamped) FrameTransform() referenceframe.Transform {
	return referenceframe.Transform{
		Parent: referenceframe.CleanFrameName(ts.Header.FrameID),
		Child:  referenceframe.CleanFrameName(ts.ChildFrameID),
		Stamp:  ts.Header.Stamp.Time(),
		Pose:   spatial.NewPose(ts.Transform.Translation.vector(), ts.Transform.Rotation.Number()),
	}
}
