package config

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navgoal/referenceframe"
	spatial "go.viam.com/navgoal/spatialmath"
)

// Translation is the translation between two frames, in meters.
type Translation struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Orientation is the rotation between two frames. Either a quaternion or roll/pitch/yaw in
// degrees may be given, not both. Neither means no rotation.
type Orientation struct {
	Quaternion *Quaternion `yaml:"quaternion,omitempty"`
	RPY        *RPY        `yaml:"rpy_degrees,omitempty"`
}

// Quaternion is a rotation quaternion. It is normalized when used.
type Quaternion struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
	W float64 `yaml:"w"`
}

// RPY is a fixed axis roll, pitch, yaw rotation in degrees.
type RPY struct {
	Roll  float64 `yaml:"roll"`
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
}

// StaticTransform places a child frame in its parent for the life of the process, e.g. a camera
// on the robot base.
type StaticTransform struct {
	Parent      string      `yaml:"parent"`
	Child       string      `yaml:"child"`
	Translation Translation `yaml:"translation"`
	Orientation Orientation `yaml:"orientation"`
}

// Validate ensures the transform names two distinct frames and a usable rotation.
func (st StaticTransform) Validate(path string) error {
	parent, child := referenceframe.CleanFrameName(st.Parent), referenceframe.CleanFrameName(st.Child)
	if parent == "" {
		return NewFieldError(path, "parent", "required")
	}
	if child == "" {
		return NewFieldError(path, "child", "required")
	}
	if parent == child {
		return NewFieldError(path, "child", "cannot equal parent")
	}
	for _, v := range []float64{st.Translation.X, st.Translation.Y, st.Translation.Z} {
		if !finite(v) {
			return NewFieldError(path, "translation", "must be finite")
		}
	}
	o := st.Orientation
	if o.Quaternion != nil && o.RPY != nil {
		return NewFieldError(path, "orientation", "give either quaternion or rpy_degrees, not both")
	}
	if q := o.Quaternion; q != nil {
		n := quat.Abs(q.number())
		if n == 0 || !finite(n) {
			return NewFieldError(path, "orientation.quaternion", "must be a non zero finite quaternion")
		}
	}
	if r := o.RPY; r != nil && !(finite(r.Roll) && finite(r.Pitch) && finite(r.Yaw)) {
		return NewFieldError(path, "orientation.rpy_degrees", "must be finite")
	}
	return nil
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}

// Transform converts the configured transform for insertion in a frame buffer.
func (st StaticTransform) Transform() referenceframe.Transform {
	q := spatial.IdentityQuaternion
	switch o := st.Orientation; {
	case o.Quaternion != nil:
		q = o.Quaternion.number()
	case o.RPY != nil:
		q = spatial.QuatFromRPY(degToRad(o.RPY.Roll), degToRad(o.RPY.Pitch), degToRad(o.RPY.Yaw))
	}
	return referenceframe.Transform{
		Parent: referenceframe.CleanFrameName(st.Parent),
		Child:  referenceframe.CleanFrameName(st.Child),
		Pose:   spatial.NewPose(r3.Vector{X: st.Translation.X, Y: st.Translation.Y, Z: st.Translation.Z}, q),
	}
}
