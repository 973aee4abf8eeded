package goal

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navgoal/marker"
	spatial "go.viam.com/navgoal/spatialmath"
)

var projectStamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestProjectIdentityTransform(t *testing.T) {
	det := marker.Detection{Label: "aruco_marker_7", Position: r3.Vector{X: 2, Y: 0.5, Z: 0.1}}
	off := Offsets{Longitudinal: -0.5, Lateral: 0.2}

	left := Project(det, spatial.NewZeroPose(), off, Left, "map", projectStamp)
	test.That(t, left.Goal.FrameID, test.ShouldEqual, "map")
	test.That(t, left.Goal.Stamp, test.ShouldEqual, projectStamp)
	test.That(t, left.Longitudinal, test.ShouldAlmostEqual, 1.5)
	pt := left.Goal.Pose.Point()
	test.That(t, pt.X, test.ShouldAlmostEqual, 1.5)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 0.7)
	test.That(t, pt.Z, test.ShouldAlmostEqual, 0.1)

	right := Project(det, spatial.NewZeroPose(), off, Right, "map", projectStamp)
	test.That(t, right.Goal.Pose.Point().Y, test.ShouldAlmostEqual, 0.3)
	test.That(t, right.Longitudinal, test.ShouldAlmostEqual, 1.5)

	// a marker with no rotation yields a goal facing back toward the camera
	_, _, yaw := spatial.QuatToRPY(left.Goal.Pose.Orientation())
	test.That(t, math.Abs(yaw), test.ShouldAlmostEqual, math.Pi)
}

func TestProjectThroughCameraPose(t *testing.T) {
	// camera 1m forward and 2m left of the map origin, looking along map +Y
	camera := spatial.NewPose(r3.Vector{X: 1, Y: 2}, spatial.QuatFromRPY(0, 0, math.Pi/2))
	det := marker.Detection{Position: r3.Vector{X: 3}, Orientation: spatial.IdentityQuaternion}

	p := Project(det, camera, Offsets{Longitudinal: -0.5}, Left, "map", projectStamp)
	pt := p.Goal.Pose.Point()
	test.That(t, pt.X, test.ShouldAlmostEqual, 1)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 4.5)
	_, _, yaw := spatial.QuatToRPY(p.Goal.Pose.Orientation())
	test.That(t, yaw, test.ShouldAlmostEqual, -math.Pi/2)
}

func TestProjectNormalizesInputs(t *testing.T) {
	det := marker.Detection{Orientation: quat.Number{Real: 2}}
	p := Project(det, spatial.NewZeroPose(), Offsets{}, Left, "map", projectStamp)
	test.That(t, quat.Abs(p.Goal.Pose.Orientation()), test.ShouldAlmostEqual, 1)

	// zero quaternions from an unset message are read as no rotation
	zero := Project(marker.Detection{}, spatial.NewZeroPose(), Offsets{}, Left, "map", projectStamp)
	test.That(t, spatial.OrientationAlmostEqual(zero.Goal.Pose.Orientation(), yaw180), test.ShouldBeTrue)
}

func TestProjectRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		camera := spatial.NewPose(
			r3.Vector{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10, Z: rng.Float64() * 2},
			quat.Number{Real: rng.NormFloat64(), Imag: rng.NormFloat64(), Jmag: rng.NormFloat64(), Kmag: rng.NormFloat64()},
		)
		det := marker.Detection{
			Position:    r3.Vector{X: rng.Float64() * 5, Y: rng.Float64()*2 - 1, Z: rng.Float64()},
			Orientation: spatial.QuatFromRPY(rng.Float64()*6-3, rng.Float64()*3-1.5, rng.Float64()*6-3),
		}
		off := Offsets{Longitudinal: rng.Float64() - 0.5, Lateral: rng.Float64() - 0.5}
		side := Sides[i%2]

		p := Project(det, camera, off, side, "map", projectStamp)
		back := spatial.Compose(spatial.PoseInverse(camera), p.Goal.Pose)

		want := offsetPosition(det.Position, off, side)
		test.That(t, back.Point().Sub(want).Norm(), test.ShouldBeLessThan, 1e-9)
		test.That(t, p.Longitudinal, test.ShouldAlmostEqual, want.X)

		// undoing the yaw correction recovers the marker's own orientation
		undone := quat.Mul(back.Orientation(), quat.Conj(yaw180))
		test.That(t, spatial.OrientationAlmostEqual(undone, det.Orientation), test.ShouldBeTrue)
	}
}

func TestYawCorrectionTwiceIsIdentity(t *testing.T) {
	twice := spatial.Compose(spatial.NewPose(r3.Vector{}, yaw180), spatial.NewPose(r3.Vector{}, yaw180))
	test.That(t, spatial.PoseAlmostEqual(twice, spatial.NewZeroPose(), 1e-12), test.ShouldBeTrue)
}
