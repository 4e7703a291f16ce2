package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// ObjectToWorld returns T * R * S.
func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// WorldToObject inverts the components separately: S^-1 * R^T * T^-1.
// Scale components must be non-zero.
func (t *Transform) WorldToObject() mgl32.Mat4 {
	invScale := mgl32.Scale3D(1/t.Scale.X(), 1/t.Scale.Y(), 1/t.Scale.Z())
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())
	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// NormalToWorld rotates and inverse-scales an object space normal.
func (t *Transform) NormalToWorld(n mgl32.Vec3) mgl32.Vec3 {
	scaled := mgl32.Vec3{n.X() / t.Scale.X(), n.Y() / t.Scale.Y(), n.Z() / t.Scale.Z()}
	return t.Rotation.Rotate(scaled).Normalize()
}
