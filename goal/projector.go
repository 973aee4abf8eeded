package goal

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navgoal/marker"
	spatial "go.viam.com/navgoal/spatialmath"
)

// yaw180 turns a marker's outward facing orientation into the heading the robot approaches with.
var yaw180 = spatial.QuatFromRPY(0, 0, math.Pi)

// Offsets shift a marker position in the camera frame before it is projected.
type Offsets struct {
	// Longitudinal is added to the camera frame x.
	Longitudinal float64
	// Lateral is added to the camera frame y on the left side and subtracted on the right.
	Lateral float64
}

// A Projection is the goal computed from one detection.
type Projection struct {
	Goal GoalPose
	// Longitudinal is the camera frame x of the marker after offsets, used to judge docking.
	Longitudinal float64
}

// offsetPosition applies offsets to a camera frame position.
func offsetPosition(pt r3.Vector, off Offsets, side Side) r3.Vector {
	return r3.Vector{
		X: pt.X + off.Longitudinal,
		Y: pt.Y + side.lateralSign()*off.Lateral,
		Z: pt.Z,
	}
}

// Project maps a detection seen by the given side's camera into a goal in mapFrame. cameraToMap is
// the pose of the camera in the map frame.
func Project(
	det marker.Detection,
	cameraToMap spatial.Pose,
	off Offsets,
	side Side,
	mapFrame string,
	now time.Time,
) Projection {
	local := offsetPosition(det.Position, off, side)
	orientation := quat.Mul(quat.Mul(cameraToMap.Orientation(), spatial.Normalize(det.Orientation)), yaw180)
	return Projection{
		Goal: GoalPose{
			Stamp:   now,
			FrameID: mapFrame,
			Pose:    spatial.NewPose(cameraToMap.TransformPoint(local), orientation),
		},
		Longitudinal: local.X,
	}
}
