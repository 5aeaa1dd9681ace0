package math

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(position, rotation, scale)
	t.Local = NewMat4Identity()
	t.Parent = nil
	return t
}

// TransformFromEulerDegrees builds a transform the way manifests describe one:
// a position, Euler angles in degrees and a scale.
func TransformFromEulerDegrees(position Vec3, eulerDegrees Vec3, scale Vec3) *Transform {
	return TransformFromPositionRotationScale(position, NewQuatFromEulerDegrees(eulerDegrees), scale)
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// EulerDegrees reports the rotation as Euler angles in degrees.
func (t *Transform) EulerDegrees() Vec3 {
	return t.Rotation.ToEulerDegrees()
}

func (t *Transform) GetLocal() Mat4 {
	if t != nil {
		if t.IsDirty {
			m := t.Rotation.ToMat4()
			tr := m.Mul(NewMat4Translation(t.Position))
			s := NewMat4Scale(t.Scale)
			tr = s.Mul(tr)
			t.Local = tr
			t.IsDirty = false
		}
		return t.Local
	}
	return NewMat4Identity()
}

func (t *Transform) GetWorld() Mat4 {
	if t != nil {
		l := t.GetLocal()
		if t.Parent != nil {
			p := t.Parent.GetWorld()
			return l.Mul(p)
		}
		return l
	}
	return NewMat4Identity()
}
