// Command iblshadows-snapshot renders the shadow pass of a small scene on the
// software engine and writes the result as a PNG, optionally together with
// the voxel grid it traced against.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"runtime"

	"github.com/gekko3d/iblshadows"
	"github.com/gekko3d/iblshadows/gfx/soft"
	"github.com/gekko3d/iblshadows/scene"
	"github.com/gekko3d/iblshadows/shaders"
	"github.com/gekko3d/iblshadows/splat"
	"github.com/gekko3d/iblshadows/voxel"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func main() {
	width := flag.Int("width", 160, "render width")
	height := flag.Int("height", 90, "render height")
	resolution := flag.Int("resolution", 64, "voxel grid resolution")
	workers := flag.Int("workers", runtime.NumCPU(), "voxelization workers")
	opacity := flag.Float64("opacity", iblshadows.DefaultShadowOpacity, "shadow opacity")
	thumb := flag.Int("thumb", 0, "scale the image to fit this many pixels, 0 keeps the render size")
	out := flag.String("o", "shadows.png", "output PNG")
	gridOut := flag.String("grid", "", "also write the voxel grid snapshot here")
	compress := flag.Int("compress", 0, "lz4 level for the grid snapshot, -1 disables compression")
	splatPath := flag.String("splat", "", "optional .splat point cloud to add to the scene")
	debug := flag.Bool("debug", false, "draw the G-buffer debug overlay")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger := iblshadows.NewZapLogger(zl)
	logger.SetDebug(*verbose)
	defer logger.Sync()

	if err := run(logger, config{
		width:      *width,
		height:     *height,
		resolution: *resolution,
		workers:    *workers,
		opacity:    float32(*opacity),
		thumb:      *thumb,
		out:        *out,
		gridOut:    *gridOut,
		compress:   *compress,
		splat:      *splatPath,
		debug:      *debug,
	}); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

type config struct {
	width, height int
	resolution    int
	workers       int
	opacity       float32
	thumb         int
	out           string
	gridOut       string
	compress      int
	splat         string
	debug         bool
}

func run(logger *iblshadows.ZapLogger, cfg config) error {
	engine := soft.NewEngine(cfg.width, cfg.height, soft.WithPrograms(shaders.Programs()))
	s := scene.New(engine)

	s.AddMesh(scene.NewGround("ground", 12, 12))
	box := scene.NewBox("box", 1.5)
	box.Transform.Position = mgl32.Vec3{-1.5, 0.75, 0}
	s.AddMesh(box)
	sphere := scene.NewSphere("sphere", 1, 16)
	sphere.Transform.Position = mgl32.Vec3{1.5, 1, 0.5}
	s.AddMesh(sphere)

	if cfg.splat != "" {
		f, err := os.Open(cfg.splat)
		if err != nil {
			return err
		}
		_, cloud, err := splat.NewLoader().ImportMesh(s, "splat", f)
		f.Close()
		if err != nil {
			return fmt.Errorf("load %s: %w", cfg.splat, err)
		}
		logger.Infof("loaded %d splats", len(cloud.Splats))
	}

	s.SetActiveCamera(scene.NewCamera(mgl32.Vec3{6, 5, 6}, mgl32.Vec3{0, 0.5, 0}))

	r := iblshadows.New(s,
		iblshadows.WithLogger(logger),
		iblshadows.WithResolution(cfg.resolution),
		iblshadows.WithVoxelWorkers(cfg.workers),
		iblshadows.WithShadowOpacity(cfg.opacity),
		iblshadows.WithProfiling(true),
	)
	defer r.Dispose()
	if r.State() == iblshadows.StateDisabled {
		return fmt.Errorf("renderer disabled")
	}
	if cfg.debug {
		if err := r.SetGBufferDebugEnabled(true); err != nil {
			return err
		}
	}

	if err := s.RenderPrePass(); err != nil {
		return err
	}
	for _, m := range r.Render() {
		logger.Warnf("mesh %q was not voxelized", m.Name)
	}
	if rd := r.Readiness(); rd != iblshadows.ReadinessReady {
		return fmt.Errorf("renderer not ready: %s", rd)
	}
	logger.Debugf("%s", r.ProfileString())

	if err := writePNG(cfg.out, engine, cfg.thumb); err != nil {
		return err
	}
	logger.Infof("wrote %s", cfg.out)

	if cfg.gridOut != "" {
		if err := writeGrid(cfg.gridOut, r.Builder().Grid(), cfg.compress); err != nil {
			return err
		}
		logger.Infof("wrote %s (%d occupied cells)", cfg.gridOut, r.Stats().Occupied)
	}
	return nil
}

func writePNG(path string, engine *soft.Engine, thumb int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, engine.Thumbnail(thumb)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeGrid(path string, g *voxel.Grid, level int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := voxel.Encode(f, g, voxel.OptCompress(level)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
