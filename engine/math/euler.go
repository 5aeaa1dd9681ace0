package math

import m "math"

// Euler angles in manifests follow the Z, then X, then Y rotation order
// (extrinsic), so the composed orientation is Ry * Rx * Rz.

/**
 * @brief Creates an orientation from Euler angles in degrees.
 *
 * @param euler Rotation around the x, y and z axes in degrees.
 * @return A unit quaternion.
 */
func NewQuatFromEulerDegrees(euler Vec3) Quaternion {
	qx := NewQuatFromAxisAngle(NewVec3Right(), DegToRad(euler.X), false)
	qy := NewQuatFromAxisAngle(NewVec3Up(), DegToRad(euler.Y), false)
	qz := NewQuatFromAxisAngle(NewVec3Back(), DegToRad(euler.Z), false)
	return qy.Mul(qx).Mul(qz).Normalize()
}

/**
 * @brief Converts an orientation back to Euler angles in degrees, each wrapped
 * into [0, 360). At the x = ±90 singularity the z angle is folded into y.
 */
func (q Quaternion) ToEulerDegrees() Vec3 {
	n := q.Normalize()
	x, y, z, w := float64(n.X), float64(n.Y), float64(n.Z), float64(n.W)

	m02 := 2 * (x*z + y*w)
	m10 := 2 * (x*y + z*w)
	m11 := 1 - 2*(x*x+z*z)
	m12 := 2 * (y*z - x*w)
	m20 := 2 * (x*z - y*w)
	m00 := 1 - 2*(y*y+z*z)
	m22 := 1 - 2*(x*x+y*y)

	// atan2 keeps x accurate near the poles where asin of a rounded sine drifts.
	cx := m.Sqrt(m10*m10 + m11*m11)
	ex := m.Atan2(-m12, cx)

	var ey, ez float64
	if cx > 1e-3 {
		ey = m.Atan2(m02, m22)
		ez = m.Atan2(m10, m11)
	} else {
		ey = m.Atan2(-m20, m00)
		ez = 0
	}

	return Vec3{
		WrapDegrees(RadToDeg(float32(ex))),
		WrapDegrees(RadToDeg(float32(ey))),
		WrapDegrees(RadToDeg(float32(ez))),
	}
}

// WrapDegrees maps an angle into [0, 360). Values within rounding distance of
// 360 collapse to 0.
func WrapDegrees(deg float32) float32 {
	d := float32(m.Mod(float64(deg), 360))
	if d < 0 {
		d += 360
	}
	if 360-d < 1e-4 {
		return 0
	}
	return d
}
