// Package scene is the mesh host the shadow renderer attaches to: meshes
// with stable ids, a camera, and an optional G-buffer pre-pass.
package scene

import (
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/prepass"

	"golang.org/x/exp/slices"
)

type Scene struct {
	engine  gfx.Engine
	camera  *Camera
	meshes  []*Mesh
	prePass *prepass.MultiTargetRenderer
}

func New(engine gfx.Engine) *Scene {
	return &Scene{engine: engine}
}

func (s *Scene) Engine() gfx.Engine {
	return s.engine
}

// ActiveCamera may be nil.
func (s *Scene) ActiveCamera() *Camera {
	return s.camera
}

func (s *Scene) SetActiveCamera(c *Camera) {
	s.camera = c
}

// EnablePrePassRenderer creates the pre-pass renderer on first use. It fails
// when the device cannot render to multiple targets.
func (s *Scene) EnablePrePassRenderer() bool {
	if s.prePass != nil {
		return true
	}
	pr, err := prepass.NewMultiTargetRenderer(s.engine)
	if err != nil {
		return false
	}
	s.prePass = pr
	return true
}

// PrePassRenderer returns nil until EnablePrePassRenderer succeeded.
func (s *Scene) PrePassRenderer() prepass.Renderer {
	if s.prePass == nil {
		return nil
	}
	return s.prePass
}

// MultiTargetPrePass exposes the concrete pre-pass for allocation and uploads.
func (s *Scene) MultiTargetPrePass() *prepass.MultiTargetRenderer {
	return s.prePass
}

// DisablePrePassRenderer releases the pre-pass target and forgets the renderer.
func (s *Scene) DisablePrePassRenderer() {
	if s.prePass == nil {
		return
	}
	s.prePass.Dispose()
	s.prePass = nil
}

// NewMesh creates a mesh and adds it to the scene.
func (s *Scene) NewMesh(name string, geom Geometry) *Mesh {
	m := NewMesh(name, geom)
	s.AddMesh(m)
	return m
}

// AddMesh appends m unless it is already present.
func (s *Scene) AddMesh(m *Mesh) {
	if m == nil || slices.Contains(s.meshes, m) {
		return
	}
	s.meshes = append(s.meshes, m)
}

func (s *Scene) RemoveMesh(m *Mesh) bool {
	i := slices.Index(s.meshes, m)
	if i < 0 {
		return false
	}
	s.meshes = slices.Delete(s.meshes, i, i+1)
	return true
}

// Meshes returns the scene meshes in insertion order.
func (s *Scene) Meshes() []*Mesh {
	return slices.Clone(s.meshes)
}

func (s *Scene) MeshByUniqueID(id int) (*Mesh, bool) {
	for _, m := range s.meshes {
		if m.UniqueID() == id {
			return m, true
		}
	}
	return nil, false
}

// RenderPrePass sizes the pre-pass target to the engine and fills every
// channel of the layout by ray casting the scene from the active camera.
func (s *Scene) RenderPrePass() error {
	if s.prePass == nil {
		return fmt.Errorf("scene: pre-pass renderer not enabled")
	}
	if s.camera == nil {
		return fmt.Errorf("scene: no active camera")
	}
	w, h := s.engine.RenderWidth(), s.engine.RenderHeight()
	if err := s.prePass.Resize(w, h); err != nil {
		return fmt.Errorf("scene: resize pre-pass: %w", err)
	}
	capture := s.CaptureGBuffer(w, h, s.prePass.Layout())
	for _, kind := range s.prePass.Layout() {
		if err := s.prePass.Upload(kind, capture[kind]); err != nil {
			return fmt.Errorf("scene: %w", err)
		}
	}
	return nil
}
