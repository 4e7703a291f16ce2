package prepass

import "golang.org/x/exp/slices"

// EffectConfiguration declares which G-buffer channels an effect needs. It is
// a value: accessors hand out copies and every modifier returns a new value.
type EffectConfiguration struct {
	name     string
	enabled  bool
	required []TextureType
}

func NewEffectConfiguration(name string, enabled bool, required ...TextureType) EffectConfiguration {
	cfg := EffectConfiguration{name: name, enabled: enabled}
	for _, kind := range required {
		if !slices.Contains(cfg.required, kind) {
			cfg.required = append(cfg.required, kind)
		}
	}
	return cfg
}

func (c EffectConfiguration) Name() string {
	return c.name
}

func (c EffectConfiguration) Enabled() bool {
	return c.enabled
}

// TexturesRequired returns the required channels in declaration order.
func (c EffectConfiguration) TexturesRequired() []TextureType {
	return slices.Clone(c.required)
}

func (c EffectConfiguration) Requires(kind TextureType) bool {
	return slices.Contains(c.required, kind)
}

// WithEnabled returns a copy with the enabled flag replaced.
func (c EffectConfiguration) WithEnabled(enabled bool) EffectConfiguration {
	out := c
	out.required = slices.Clone(c.required)
	out.enabled = enabled
	return out
}

// Equal reports whether both configurations hold the same name, flag and channels.
func (c EffectConfiguration) Equal(o EffectConfiguration) bool {
	return c.name == o.name && c.enabled == o.enabled && slices.Equal(c.required, o.required)
}
