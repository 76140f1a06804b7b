// Package kinematics implements the closed-form forward kinematics of the
// six-joint sensor arm. Each joint rotates about a fixed principal axis and
// then extends along its own rotated local X axis; chaining the six
// homogeneous transforms yields the position of the arm tip relative to the
// base.
package kinematics

import (
	"fmt"
	"math"
)

// NumJoints is the number of joints in the arm chain.
const NumJoints = 6

// DefaultScale converts a raw 10-bit sensor reading to degrees.
const DefaultScale = 360.0 / 1024.0

// Axis identifies the principal rotation axis of a joint.
type Axis uint8

const (
	AxisX Axis = iota // roll
	AxisY             // pitch
	AxisZ             // yaw
)

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// Joint describes one rotate-then-translate stage of the chain: the rotation
// axis, the length of the link extending from the joint, and the factor
// converting a raw sensor reading to degrees. Joints are immutable once the
// chain is built.
type Joint struct {
	Axis   Axis
	Length float64
	Scale  float64
}

// DefaultLengths are the link lengths of the reference arm, in the same
// linear units the tip position is reported in.
var DefaultLengths = [NumJoints]float64{10, 10, 10, 5, 5, 2}

// chainAxes is the fixed per-joint axis assignment of the arm: two pitch
// joints at the base, then yaw, roll, yaw, yaw.
var chainAxes = [NumJoints]Axis{AxisY, AxisY, AxisZ, AxisX, AxisZ, AxisZ}

// DefaultJoints returns the six joints of the reference arm with the fixed
// axis assignment, the given link lengths and the default raw-to-degree
// scale.
func DefaultJoints(lengths [NumJoints]float64) [NumJoints]Joint {
	var joints [NumJoints]Joint
	for i := range joints {
		joints[i] = Joint{Axis: chainAxes[i], Length: lengths[i], Scale: DefaultScale}
	}
	return joints
}

// Chain is an immutable six-joint kinematic chain. Its methods are pure and
// safe for concurrent use.
type Chain struct {
	joints [NumJoints]Joint
}

// NewChain builds a chain from six joint definitions. It returns an error if
// a joint carries an unknown axis, a negative link length or a non-positive
// scale; these indicate a configuration mistake, not a runtime condition.
func NewChain(joints [NumJoints]Joint) (*Chain, error) {
	for i, j := range joints {
		if j.Axis > AxisZ {
			return nil, fmt.Errorf("joint %d: invalid rotation axis %s", i, j.Axis)
		}
		if j.Length < 0 {
			return nil, fmt.Errorf("joint %d: negative link length %f", i, j.Length)
		}
		if j.Scale <= 0 {
			return nil, fmt.Errorf("joint %d: non-positive scale %f", i, j.Scale)
		}
	}
	return &Chain{joints: joints}, nil
}

// Angle converts a raw sensor reading for the given joint to degrees using
// the joint's scale. Out-of-range readings are not clamped; the conversion is
// deliberately permissive.
func (c *Chain) Angle(joint, raw int) float64 {
	return float64(raw) * c.joints[joint].Scale
}

// Tip computes the position of the distal end of the chain, relative to the
// base origin, for the given joint angles in degrees. The six transforms are
// composed in joint order, so each joint operates in its parent's already
// rotated and translated frame.
func (c *Chain) Tip(angles [NumJoints]float64) (x, y, z float64) {
	t := c.joints[0].transform(angles[0])
	for i := 1; i < NumJoints; i++ {
		t = t.mul(c.joints[i].transform(angles[i]))
	}
	return t[0][3], t[1][3], t[2][3]
}

// transform builds the homogeneous transform of one joint: rotate by the
// given angle about the joint axis, then translate by the link length along
// the rotated local X axis.
func (j Joint) transform(angleDeg float64) matrix {
	rad := angleDeg * math.Pi / 180
	r := rotation(j.Axis, rad)
	return r.mul(translation(j.Length))
}
