package gfx

// ThinTexture is a non-owning view onto a texture somebody else allocated.
// Disposing it drops the reference and never releases the texture.
type ThinTexture struct {
	tex Texture
}

func NewThinTexture(tex Texture) *ThinTexture {
	return &ThinTexture{tex: tex}
}

// Texture returns the viewed texture, or nil once disposed.
func (t *ThinTexture) Texture() Texture {
	if t == nil {
		return nil
	}
	return t.tex
}

// ID returns the identity of the viewed texture, 0 if none.
func (t *ThinTexture) ID() uint64 {
	if t == nil || t.tex == nil {
		return 0
	}
	return t.tex.ID()
}

// IsReady reports whether the view points at a live texture.
func (t *ThinTexture) IsReady() bool {
	return t != nil && t.tex != nil && !t.tex.Released()
}

func (t *ThinTexture) Dispose() {
	if t == nil {
		return
	}
	t.tex = nil
}
