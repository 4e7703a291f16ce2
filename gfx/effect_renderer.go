package gfx

import "fmt"

// EffectRenderer draws full-screen effects on an engine. It owns no GPU
// state of its own beyond the draw itself, but it can be disposed so later
// uses fail loudly instead of drawing through a torn-down renderer.
type EffectRenderer struct {
	engine   Engine
	draws    int
	disposed bool
}

func NewEffectRenderer(engine Engine) *EffectRenderer {
	return &EffectRenderer{engine: engine}
}

// Render issues one full-screen draw with the effect's current bindings.
// Effects that are still compiling are skipped without error.
func (r *EffectRenderer) Render(effect Effect) error {
	if r.disposed {
		return ErrDisposed
	}
	if effect == nil || !effect.IsReady() {
		return nil
	}
	if err := r.engine.DrawFullscreen(effect); err != nil {
		return fmt.Errorf("effect renderer: draw %s: %w", effect.Name(), err)
	}
	r.draws++
	return nil
}

// Draws returns the number of successful draws issued so far.
func (r *EffectRenderer) Draws() int {
	return r.draws
}

func (r *EffectRenderer) Disposed() bool {
	return r.disposed
}

func (r *EffectRenderer) Dispose() {
	r.disposed = true
}
