package geometry

// Transform is a rigid transform between a module's local frame and the
// global detector frame: global = R*local + T. R is row-major and must be
// orthonormal, which lets GlobalToLocal use the transpose as the inverse.
type Transform struct {
	R [9]float64
	T Vec3
}

// IdentityTransform returns the identity transform (local frame == global
// frame).
func IdentityTransform() Transform {
	return Transform{R: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// Translation returns a pure translation transform.
func Translation(t Vec3) Transform {
	tr := IdentityTransform()
	tr.T = t
	return tr
}

// LocalToGlobal maps a point in the module's local frame to the global
// frame.
func (tr Transform) LocalToGlobal(p Vec3) Vec3 {
	return Vec3{
		X: tr.R[0]*p.X + tr.R[1]*p.Y + tr.R[2]*p.Z + tr.T.X,
		Y: tr.R[3]*p.X + tr.R[4]*p.Y + tr.R[5]*p.Z + tr.T.Y,
		Z: tr.R[6]*p.X + tr.R[7]*p.Y + tr.R[8]*p.Z + tr.T.Z,
	}
}

// GlobalToLocal maps a point in the global frame into the module's local
// frame. Requires R orthonormal.
func (tr Transform) GlobalToLocal(p Vec3) Vec3 {
	d := p.Sub(tr.T)
	return Vec3{
		X: tr.R[0]*d.X + tr.R[3]*d.Y + tr.R[6]*d.Z,
		Y: tr.R[1]*d.X + tr.R[4]*d.Y + tr.R[7]*d.Z,
		Z: tr.R[2]*d.X + tr.R[5]*d.Y + tr.R[8]*d.Z,
	}
}
