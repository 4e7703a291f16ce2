package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a y-up perspective camera looking at a target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // radians
	Near     float32
	Far      float32
}

func NewCamera(position, target mgl32.Vec3) *Camera {
	return &Camera{
		Position: position,
		Target:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     mgl32.DegToRad(60),
		Near:     0.1,
		Far:      100,
	}
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Ray returns the world space ray through normalized screen coordinates
// (u, v), (0, 0) being the top left corner.
func (c *Camera) Ray(u, v, aspect float32) (origin, dir mgl32.Vec3) {
	forward := c.Forward()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward)

	halfH := math32.Tan(c.FovY / 2)
	halfW := halfH * aspect
	x := (2*u - 1) * halfW
	y := (1 - 2*v) * halfH
	return c.Position, forward.Add(right.Mul(x)).Add(up.Mul(y)).Normalize()
}

// Orbit moves the camera around its target by yaw radians about the up axis.
func (c *Camera) Orbit(yaw float32) {
	offset := c.Position.Sub(c.Target)
	rot := mgl32.QuatRotate(yaw, c.Up)
	c.Position = c.Target.Add(rot.Rotate(offset))
}
