// Package iblshadows renders voxel traced shadows for image based lighting.
//
// A Renderer voxelizes the host's meshes into an occupancy grid, reads the
// G-buffer produced by the host's pre-pass and composes a full-screen
// shadow term over the frame. Call IsReady and Render once per frame and
// Dispose to tear down.
package iblshadows

import (
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/prepass"
	"github.com/gekko3d/iblshadows/scene"
	"github.com/gekko3d/iblshadows/voxel"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// Host is the scene a Renderer attaches to. *scene.Scene implements it.
type Host interface {
	Engine() gfx.Engine
	// ActiveCamera may return nil.
	ActiveCamera() *scene.Camera
	EnablePrePassRenderer() bool
	// PrePassRenderer returns nil while no pre-pass exists.
	PrePassRenderer() prepass.Renderer
	Meshes() []*scene.Mesh
}

const (
	scopeVoxelize = "voxelize"
	scopeRefresh  = "refresh"
	scopeCompose  = "compose"
	scopeDebug    = "debug"

	countOccupied  = "occupied"
	countResolved  = "resolved"
	countUnhandled = "unhandled"
)

type Renderer struct {
	id     uuid.UUID
	host   Host
	logger Logger
	opts   options

	disabled bool
	disposed bool
	dirty    bool

	resolution int
	excluded   []int
	config     prepass.EffectConfiguration
	handle     prepass.Handle

	builder    *voxel.Builder
	cache      *gbufferCache
	compositor *compositor
	debug      *debugOverlay
	profiler   *Profiler

	unhandled []*scene.Mesh
	rebuilds  int
}

// New attaches a renderer to host. When the host cannot provide a pre-pass,
// or any resource fails to build, the renderer is returned disabled: it
// never becomes ready and Render is a no-op.
func New(host Host, options ...Option) *Renderer {
	opts := defaultOptions()
	for _, option := range options {
		option(&opts)
	}
	r := &Renderer{
		id:         uuid.New(),
		host:       host,
		logger:     opts.logger,
		opts:       opts,
		dirty:      true,
		resolution: opts.resolution,
		config:     newEffectConfiguration(),
	}
	if opts.profiling {
		r.profiler = NewProfiler()
	}

	if !host.EnablePrePassRenderer() {
		r.logger.Warnf("IBL Shadows Renderer could not enable PrePass, aborting.")
		r.disabled = true
		return r
	}
	if err := r.build(); err != nil {
		r.logger.Errorf("IBL Shadows Renderer %s: %v", r.id, err)
		r.releaseResources()
		r.disabled = true
		return r
	}
	r.handle = r.SetPrePassRenderer(host.PrePassRenderer())
	r.logger.Debugf("IBL Shadows Renderer %s created at resolution %d", r.id, r.resolution)
	return r
}

func (r *Renderer) build() error {
	engine := r.host.Engine()
	builder, err := voxel.NewBuilder(engine, r.host, r.resolution,
		voxel.WithWorkers(r.opts.workers),
		voxel.WithPadding(r.opts.padding),
	)
	if err != nil {
		return fmt.Errorf("voxel builder: %w", err)
	}
	r.builder = builder

	r.cache = newGBufferCache(r.config.TexturesRequired())

	comp, err := newCompositor(engine, r.label("compose"), r.opts)
	if err != nil {
		return err
	}
	r.compositor = comp
	r.debug = newDebugOverlay(engine, r.label("debug"))
	return nil
}

func (r *Renderer) label(pass string) string {
	return fmt.Sprintf("%s %s %s", EffectName, pass, r.id.String()[:8])
}

// ID identifies this renderer in logs and resource labels.
func (r *Renderer) ID() uuid.UUID {
	return r.id
}

func (r *Renderer) Resolution() int {
	return r.resolution
}

// SetResolution changes the voxel grid resolution. A different value marks
// the voxelization dirty; the rebuild happens on the next Render.
func (r *Renderer) SetResolution(n int) error {
	if r.disposed {
		return gfx.ErrDisposed
	}
	if n < 1 {
		return ErrInvalidResolution
	}
	if n == r.resolution {
		return nil
	}
	if r.builder != nil {
		if err := r.builder.SetResolution(n); err != nil {
			return fmt.Errorf("iblshadows: set resolution %d: %w", n, err)
		}
	}
	r.resolution = n
	r.dirty = true
	return nil
}

// AddExcludedMesh keeps m out of future voxelizations. It does not trigger one.
func (r *Renderer) AddExcludedMesh(m *scene.Mesh) {
	if m == nil || slices.Contains(r.excluded, m.UniqueID()) {
		return
	}
	r.excluded = append(r.excluded, m.UniqueID())
}

func (r *Renderer) RemoveExcludedMesh(m *scene.Mesh) {
	if m == nil {
		return
	}
	if i := slices.Index(r.excluded, m.UniqueID()); i >= 0 {
		r.excluded = slices.Delete(r.excluded, i, i+1)
	}
}

// ExcludedMeshes returns the excluded mesh ids in ascending order.
func (r *Renderer) ExcludedMeshes() []int {
	ids := slices.Clone(r.excluded)
	slices.Sort(ids)
	return ids
}

func (r *Renderer) IsExcluded(m *scene.Mesh) bool {
	return m != nil && slices.Contains(r.excluded, m.UniqueID())
}

// Invalidate forces a revoxelization on the next Render.
func (r *Renderer) Invalidate() {
	if r.disposed {
		return
	}
	r.dirty = true
}

func (r *Renderer) VoxelizationDirty() bool {
	return r.dirty
}

func (r *Renderer) State() State {
	switch {
	case r.disposed:
		return StateDisposed
	case r.disabled:
		return StateDisabled
	case r.dirty:
		return StateDirty
	}
	return StateClean
}

// Readiness checks the volume, then refreshes the G-buffer references.
func (r *Renderer) Readiness() Readiness {
	switch {
	case r.disposed:
		return ReadinessDisposed
	case r.disabled:
		return ReadinessDisabled
	case !r.builder.IsReady():
		return ReadinessMissingVolume
	}

	r.profiler.BeginScope(scopeRefresh)
	ok := r.cache.refresh(r.host.PrePassRenderer())
	r.profiler.EndScope(scopeRefresh)
	r.profiler.SetCount(countResolved, r.cache.resolvedCount())
	if !ok {
		return ReadinessMissingPrePass
	}
	return ReadinessReady
}

func (r *Renderer) IsReady() bool {
	return r.Readiness() == ReadinessReady
}

// Render revoxelizes when dirty and composes the shadow term when ready. It
// returns the enabled meshes that were added after the last voxelization and
// therefore cast no shadow this frame. The slice is reused by the next call.
func (r *Renderer) Render() []*scene.Mesh {
	if r.disabled || r.disposed {
		r.unhandled = r.unhandled[:0]
		return r.unhandled
	}
	if r.dirty {
		r.rebuild()
	}

	r.unhandled = r.unhandled[:0]
	if !r.IsReady() {
		return r.unhandled
	}

	pr := r.host.PrePassRenderer()
	r.profiler.BeginScope(scopeCompose)
	if err := r.compositor.compose(pr, r.builder, r.cache); err != nil {
		r.logger.Errorf("IBL Shadows Renderer %s: compose: %v", r.id, err)
	}
	r.profiler.EndScope(scopeCompose)

	// The overlay follows the camera like any post-process.
	if r.debug.enabled() && r.host.ActiveCamera() != nil {
		r.profiler.BeginScope(scopeDebug)
		if err := r.debug.draw(pr); err != nil {
			r.logger.Errorf("IBL Shadows Renderer %s: debug overlay: %v", r.id, err)
		}
		r.profiler.EndScope(scopeDebug)
	}

	r.collectUnhandled()
	r.profiler.SetCount(countUnhandled, len(r.unhandled))
	return r.unhandled
}

func (r *Renderer) rebuild() {
	r.profiler.BeginScope(scopeVoxelize)
	stats, err := r.builder.UpdateVoxelGrid(r.excluded)
	r.profiler.EndScope(scopeVoxelize)
	if err != nil {
		r.logger.Errorf("IBL Shadows Renderer %s: voxelization failed: %v", r.id, err)
		return
	}
	r.dirty = false
	r.rebuilds++
	r.profiler.SetCount(countOccupied, stats.Occupied)
	r.logger.Debugf("IBL Shadows Renderer %s voxelized %d meshes, %d triangles, %d cells in %s",
		r.id, stats.Meshes, stats.Triangles, stats.Occupied, stats.Duration)
}

func (r *Renderer) collectUnhandled() {
	voxelized := r.builder.VoxelizedMeshIDs()
	for _, m := range r.host.Meshes() {
		if !m.Enabled || !m.HasGeometry() || slices.Contains(r.excluded, m.UniqueID()) {
			continue
		}
		if !slices.Contains(voxelized, m.UniqueID()) {
			r.unhandled = append(r.unhandled, m)
		}
	}
}

// Rebuilds returns how many voxelizations this renderer triggered.
func (r *Renderer) Rebuilds() int {
	return r.rebuilds
}

// SetPrePassRenderer registers a copy of the renderer's channel requirements
// with pr. A nil pr yields the zero Handle.
func (r *Renderer) SetPrePassRenderer(pr prepass.Renderer) prepass.Handle {
	if pr == nil {
		return prepass.Handle{}
	}
	return pr.AddEffectConfiguration(r.config)
}

// EffectConfiguration returns the channel requirements registered with the pre-pass.
func (r *Renderer) EffectConfiguration() prepass.EffectConfiguration {
	return r.config
}

// Handle is the pre-pass registration made by New.
func (r *Renderer) Handle() prepass.Handle {
	return r.handle
}

func (r *Renderer) GBufferDebugEnabled() bool {
	return r.debug != nil && r.debug.enabled()
}

// SetGBufferDebugEnabled toggles the G-buffer mosaic drawn after the shadow
// term. Enabling requires a pre-pass renderer.
func (r *Renderer) SetGBufferDebugEnabled(enabled bool) error {
	if r.disposed {
		return gfx.ErrDisposed
	}
	if enabled == r.GBufferDebugEnabled() {
		return nil
	}
	if !enabled {
		r.debug.disable()
		return nil
	}
	if r.debug == nil || r.host.PrePassRenderer() == nil {
		r.logger.Errorf("Can't enable G-Buffer debug rendering since prepassRenderer doesn't exist.")
		return ErrPrePassUnavailable
	}
	if err := r.debug.enable(); err != nil {
		r.logger.Errorf("IBL Shadows Renderer %s: %v", r.id, err)
		return fmt.Errorf("iblshadows: %w", err)
	}
	return nil
}

// Builder exposes the voxel builder for inspection. nil when disabled.
func (r *Renderer) Builder() *voxel.Builder {
	return r.builder
}

// Stats returns the last voxelization stats.
func (r *Renderer) Stats() voxel.Stats {
	if r.builder == nil {
		return voxel.Stats{}
	}
	return r.builder.LastStats()
}

// Profiler is nil unless WithProfiling was set.
func (r *Renderer) Profiler() *Profiler {
	return r.profiler
}

func (r *Renderer) ProfileString() string {
	return r.profiler.String()
}

// Dispose releases every resource the renderer created. Safe to call twice.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.releaseResources()
	r.unhandled = nil
	r.disposed = true
}

func (r *Renderer) releaseResources() {
	if r.debug != nil {
		r.debug.disable()
		r.debug = nil
	}
	if r.compositor != nil {
		r.compositor.dispose()
		r.compositor = nil
	}
	if r.cache != nil {
		r.cache.dispose()
		r.cache = nil
	}
	if r.builder != nil {
		r.builder.Dispose()
		r.builder = nil
	}
}
