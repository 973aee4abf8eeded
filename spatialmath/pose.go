// Package spatialmath defines spatial mathematical operations
package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a rotation followed by a translation. Applied to a point expressed
// in a child frame it yields that point expressed in the parent frame.
//
// The orientation is always a unit quaternion.
type Pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewPose returns a pose at the given point with the given orientation. The orientation is
// normalized.
func NewPose(pt r3.Vector, o quat.Number) Pose {
	return Pose{point: pt, orientation: Normalize(o)}
}

// NewPoseFromPoint returns a pose at the given point with no rotation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{point: pt, orientation: IdentityQuaternion}
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{orientation: IdentityQuaternion}
}

// Point returns the translation of the pose.
func (p Pose) Point() r3.Vector {
	return p.point
}

// Orientation returns the unit rotation quaternion of the pose.
func (p Pose) Orientation() quat.Number {
	if p.orientation == (quat.Number{}) {
		return IdentityQuaternion
	}
	return p.orientation
}

// TransformPoint maps pt from the pose's child frame into its parent frame: rotate, then
// translate.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return RotatePoint(p.Orientation(), pt).Add(p.point)
}

func (p Pose) String() string {
	q := p.Orientation()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f qW:%.4f qX:%.4f qY:%.4f qZ:%.4f}",
		p.point.X, p.point.Y, p.point.Z, q.Real, q.Imag, q.Jmag, q.Kmag)
}

// Compose returns the pose equivalent to applying b and then a, i.e. if a maps B into A and b maps
// C into B, the result maps C into A.
func Compose(a, b Pose) Pose {
	return Pose{
		point:       a.TransformPoint(b.point),
		orientation: Normalize(quat.Mul(a.Orientation(), b.Orientation())),
	}
}

// PoseInverse returns the pose mapping the parent frame back into the child frame.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.Orientation())
	return Pose{
		point:       RotatePoint(inv, p.point).Mul(-1),
		orientation: inv,
	}
}

// PoseBetween returns the pose that gets you from a to b, i.e. Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostEqual reports whether two poses are within epsilon in translation and describe
// approximately the same rotation.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	return a.point.Sub(b.point).Norm() <= epsilon && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// Interpolate returns the pose a fraction `by` of the way from a to b: translation is linearly
// interpolated and rotation is slerped.
func Interpolate(a, b Pose, by float64) Pose {
	return Pose{
		point:       a.point.Add(b.point.Sub(a.point).Mul(by)),
		orientation: Slerp(a.Orientation(), b.Orientation(), by),
	}
}
