package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// If two angles differ by less than this amount, we consider them the same for the purpose of doing
// math around the poles of orientation.
const angleEpsilon = 0.01 // radians

// IdentityQuaternion is the quaternion which signifies no rotation.
var IdentityQuaternion = quat.Number{Real: 1}

// Normalize returns the unit quaternion pointing the same way as q. A zero (or non-finite)
// quaternion has no direction and normalizes to the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return IdentityQuaternion
	}
	if norm == 1 {
		return q
	}
	return quat.Scale(1/norm, q)
}

// Norm returns the norm of the imaginary part of the quaternion.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuatFromRPY builds the rotation that applies roll about X, then pitch about Y, then yaw about
// Z (fixed axes). Angles are in radians.
func QuatFromRPY(roll, pitch, yaw float64) quat.Number {
	q := mgl64.AnglesToQuat(yaw, pitch, roll, mgl64.ZYX)
	return Normalize(quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]})
}

// QuatToRPY converts a rotation unit quaternion to roll, pitch and yaw in radians.
// See https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles
func QuatToRPY(q quat.Number) (roll, pitch, yaw float64) {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinp := 2 * (w*y - z*x)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// RotatePoint rotates pt by the unit quaternion q.
func RotatePoint(q quat.Number, pt r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage, q == -q, and
// this function will *not* account for this. Use OrientationAlmostEqual unless you're certain this is what you want.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// OrientationAlmostEqual reports whether two quaternions describe approximately the same
// rotation, treating q and -q as equal.
func OrientationAlmostEqual(a, b quat.Number) bool {
	a, b = Normalize(a), Normalize(b)
	return QuaternionAlmostEqual(a, b, 1e-5) || QuaternionAlmostEqual(a, Flip(b), 1e-5)
}

// Slerp spherically interpolates between two unit quaternions, by = 0 returning a and by = 1
// returning b, always along the shorter arc.
func Slerp(a, b quat.Number, by float64) quat.Number {
	a, b = Normalize(a), Normalize(b)
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = Flip(b)
		dot = -dot
	}
	if dot > 1-angleEpsilon*angleEpsilon {
		// nearly parallel, lerp is accurate and avoids dividing by sin(~0)
		return Normalize(quat.Add(quat.Scale(1-by, a), quat.Scale(by, b)))
	}
	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-by)*theta) / sinTheta
	wb := math.Sin(by*theta) / sinTheta
	return Normalize(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}
