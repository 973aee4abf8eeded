// Package goal turns marker sightings into navigation goals and decides which camera's goal to
// publish.
package goal

import (
	"fmt"
	"time"

	spatial "go.viam.com/navgoal/spatialmath"
)

// Side names the camera a goal was derived from.
type Side int

// The two forward cameras.
const (
	Left Side = iota
	Right
)

// Sides lists every side in a stable order.
var Sides = []Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// lateralSign is the sign the lateral offset carries on this side: added on the left, subtracted
// on the right.
func (s Side) lateralSign() float64 {
	if s == Right {
		return -1
	}
	return 1
}

// A GoalPose is a navigation target expressed in the map frame.
type GoalPose struct {
	Stamp   time.Time
	FrameID string
	Pose    spatial.Pose
}

func (g GoalPose) String() string {
	return fmt.Sprintf("%s@%s %v", g.FrameID, g.Stamp.Format(time.RFC3339Nano), g.Pose)
}
