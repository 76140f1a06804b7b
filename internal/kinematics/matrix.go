package kinematics

import "math"

// matrix is a 4x4 homogeneous transform in row-major order.
type matrix [4][4]float64

// mul returns m·n.
func (m matrix) mul(n matrix) matrix {
	var out matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i][k] * n[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// rotation returns the homogeneous rotation by rad radians about the given
// principal axis. The axis has been validated at chain construction.
func rotation(axis Axis, rad float64) matrix {
	c := math.Cos(rad)
	s := math.Sin(rad)

	switch axis {
	case AxisX:
		return matrix{
			{1, 0, 0, 0},
			{0, c, -s, 0},
			{0, s, c, 0},
			{0, 0, 0, 1},
		}
	case AxisY:
		return matrix{
			{c, 0, s, 0},
			{0, 1, 0, 0},
			{-s, 0, c, 0},
			{0, 0, 0, 1},
		}
	case AxisZ:
		return matrix{
			{c, -s, 0, 0},
			{s, c, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		}
	default:
		panic("kinematics: unvalidated axis " + axis.String())
	}
}

// translation returns the homogeneous translation by length along X.
func translation(length float64) matrix {
	return matrix{
		{1, 0, 0, length},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}
