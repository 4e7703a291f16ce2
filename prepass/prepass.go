// Package prepass describes the G-buffer stage that runs before composition:
// channel kinds, the channel requirements effects register, and a
// multi-render-target implementation of the registry.
package prepass

import (
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"
)

// TextureType identifies a G-buffer channel.
type TextureType int

const (
	TextureIrradiance TextureType = iota
	TexturePosition
	TextureVelocity
	TextureReflectivity
	TextureColor
	TextureDepth
	TextureNormal
	TextureAlbedoSqrt
	TextureWorldNormal
	TextureLocalPosition
)

// NoIndex is returned by GetIndex for channels absent from the layout.
const NoIndex = -1

var textureTypeNames = map[TextureType]string{
	TextureIrradiance:    "irradiance",
	TexturePosition:      "position",
	TextureVelocity:      "velocity",
	TextureReflectivity:  "reflectivity",
	TextureColor:         "color",
	TextureDepth:         "depth",
	TextureNormal:        "normal",
	TextureAlbedoSqrt:    "albedoSqrt",
	TextureWorldNormal:   "worldNormal",
	TextureLocalPosition: "localPosition",
}

func (t TextureType) String() string {
	if n, ok := textureTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TextureType(%d)", int(t))
}

// Format returns the texture format the channel is stored in.
func (t TextureType) Format() gfx.TextureFormat {
	if t == TextureDepth {
		return gfx.TextureFormatR32Float
	}
	return gfx.TextureFormatRGBA32Float
}

// RenderTarget is the multi-attachment target the pre-pass draws into.
// Textures are indexed by the slot GetIndex reports.
type RenderTarget interface {
	gfx.Framebuffer
}

// Handle identifies a registered configuration. The zero Handle means nothing
// was registered.
type Handle struct {
	ID            int
	Configuration EffectConfiguration
}

func (h Handle) Valid() bool {
	return h.ID > 0
}

// Renderer is the pre-pass registry consumed by effects.
type Renderer interface {
	AddEffectConfiguration(cfg EffectConfiguration) Handle
	GetIndex(kind TextureType) int
	// RenderTarget returns nil until the target is allocated.
	RenderTarget() RenderTarget
}
