package iblshadows

import (
	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/prepass"
)

type gbufferRef struct {
	targetID  uint64
	textureID uint64
	thin      *gfx.ThinTexture
}

// gbufferCache holds non-owning views onto the pre-pass targets, keyed by
// slot. A view is replaced when the target or the texture in its slot
// changes identity.
type gbufferCache struct {
	kinds []prepass.TextureType
	slots map[int]*gbufferRef
	// resolved maps each kind to its slot as of the latest refresh.
	resolved map[prepass.TextureType]int
}

func newGBufferCache(kinds []prepass.TextureType) *gbufferCache {
	return &gbufferCache{
		kinds:    kinds,
		slots:    make(map[int]*gbufferRef),
		resolved: make(map[prepass.TextureType]int),
	}
}

// refresh resolves every required kind against the current pre-pass target.
// Only a missing pre-pass renderer fails; unresolved kinds stay unbound.
func (c *gbufferCache) refresh(pr prepass.Renderer) bool {
	if pr == nil {
		return false
	}
	clear(c.resolved)

	rt := pr.RenderTarget()
	for _, kind := range c.kinds {
		idx := pr.GetIndex(kind)
		if idx < 0 || rt == nil {
			continue
		}
		textures := rt.Textures()
		if idx >= len(textures) || textures[idx] == nil || textures[idx].Released() {
			continue
		}
		tex := textures[idx]

		ref, ok := c.slots[idx]
		if !ok || ref.targetID != rt.ID() || ref.textureID != tex.ID() {
			if ok {
				ref.thin.Dispose()
			}
			ref = &gbufferRef{targetID: rt.ID(), textureID: tex.ID(), thin: gfx.NewThinTexture(tex)}
			c.slots[idx] = ref
		}
		c.resolved[kind] = idx
	}
	return true
}

// reference returns the view for kind, or nil when it did not resolve on the
// latest refresh.
func (c *gbufferCache) reference(kind prepass.TextureType) *gfx.ThinTexture {
	idx, ok := c.resolved[kind]
	if !ok {
		return nil
	}
	return c.slots[idx].thin
}

func (c *gbufferCache) resolvedCount() int {
	return len(c.resolved)
}

// dispose drops every view. The pre-pass keeps ownership of the textures.
func (c *gbufferCache) dispose() {
	for idx, ref := range c.slots {
		ref.thin.Dispose()
		delete(c.slots, idx)
	}
	clear(c.resolved)
}
