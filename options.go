package iblshadows

import "github.com/gekko3d/iblshadows/gfx"

const (
	DefaultResolution    = 128
	DefaultShadowOpacity = 0.8
)

type options struct {
	resolution  int
	logger      Logger
	output      gfx.Framebuffer
	workers     int
	padding     int
	opacity     float32
	maxDistance float32
	profiling   bool
}

func defaultOptions() options {
	return options{
		resolution: DefaultResolution,
		logger:     NewNopLogger(),
		workers:    1,
		padding:    1,
		opacity:    DefaultShadowOpacity,
	}
}

type Option func(*options)

// WithResolution sets the voxel grid edge length. Values below 1 are ignored.
func WithResolution(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.resolution = n
		}
	}
}

func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutputTarget composes into fb instead of the default framebuffer.
func WithOutputTarget(fb gfx.Framebuffer) Option {
	return func(o *options) {
		o.output = fb
	}
}

// WithVoxelWorkers sets how many slabs voxelize in parallel.
func WithVoxelWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithVoxelPadding keeps this many empty cells around the scene bounds.
func WithVoxelPadding(cells int) Option {
	return func(o *options) {
		if cells >= 0 {
			o.padding = cells
		}
	}
}

// WithShadowOpacity scales how dark a fully occluded pixel gets, clamped to [0,1].
func WithShadowOpacity(v float32) Option {
	return func(o *options) {
		o.opacity = max(0, min(1, v))
	}
}

// WithMaxTraceDistance bounds the shadow march in world units. Zero traces
// across the whole grid.
func WithMaxTraceDistance(d float32) Option {
	return func(o *options) {
		o.maxDistance = max(0, d)
	}
}

func WithProfiling(enabled bool) Option {
	return func(o *options) {
		o.profiling = enabled
	}
}
