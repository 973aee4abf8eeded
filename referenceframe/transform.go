// Package referenceframe tracks rigid transforms between named coordinate frames and answers
// "where is frame A relative to frame B at time T" queries.
package referenceframe

import (
	"context"
	"strings"
	"time"

	spatial "go.viam.com/navgoal/spatialmath"
)

// DefaultLookupTimeout is how long a lookup waits for a transform to become available.
const DefaultLookupTimeout = 2 * time.Second

// A Transform is the time-stamped pose of Child expressed in Parent. Applied to a point in Child it
// yields that point in Parent.
type Transform struct {
	Parent string
	Child  string
	Stamp  time.Time
	Pose   spatial.Pose
}

// Inverse returns the transform from Parent into Child.
func (tf Transform) Inverse() Transform {
	return Transform{Parent: tf.Child, Child: tf.Parent, Stamp: tf.Stamp, Pose: spatial.PoseInverse(tf.Pose)}
}

// TransformProvider answers transform queries between named frames.
type TransformProvider interface {
	// LookupTransform returns the transform mapping points in source into target. A zero `at`
	// asks for the latest available data. The call waits up to timeout for the transform to
	// become available.
	LookupTransform(ctx context.Context, target, source string, at time.Time, timeout time.Duration) (Transform, error)
}

// CleanFrameName strips the leading slash ROS tooling tends to add to frame identifiers.
func CleanFrameName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "/")
}
