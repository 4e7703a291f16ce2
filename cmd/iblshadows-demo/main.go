package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/gekko3d/iblshadows"
	"github.com/gekko3d/iblshadows/gfx/wgpugfx"
	"github.com/gekko3d/iblshadows/scene"
	"github.com/gekko3d/iblshadows/splat"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	width := flag.Int("width", 640, "window width")
	height := flag.Int("height", 360, "window height")
	resolution := flag.Int("resolution", iblshadows.DefaultResolution, "voxel grid resolution")
	workers := flag.Int("workers", runtime.NumCPU(), "voxelization workers")
	opacity := flag.Float64("opacity", iblshadows.DefaultShadowOpacity, "shadow opacity")
	splatPath := flag.String("splat", "", "optional .splat point cloud to add to the scene")
	debug := flag.Bool("debug", false, "start with the G-buffer debug overlay")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger := iblshadows.NewZapLogger(zl)
	logger.SetDebug(*verbose)
	defer logger.Sync()

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*width, *height, "IBL Shadows", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	engine, err := wgpugfx.NewFromWindow(window)
	if err != nil {
		logger.Errorf("open device: %v", err)
		os.Exit(1)
	}
	defer engine.Release()

	s := scene.New(engine)
	buildScene(s)
	if *splatPath != "" {
		if err := loadSplat(s, *splatPath); err != nil {
			logger.Errorf("load %s: %v", *splatPath, err)
		}
	}
	cam := scene.NewCamera(mgl32.Vec3{6, 5, 6}, mgl32.Vec3{0, 0.5, 0})
	s.SetActiveCamera(cam)

	r := iblshadows.New(s,
		iblshadows.WithLogger(logger),
		iblshadows.WithResolution(*resolution),
		iblshadows.WithVoxelWorkers(*workers),
		iblshadows.WithShadowOpacity(float32(*opacity)),
		iblshadows.WithProfiling(*verbose),
	)
	defer r.Dispose()
	if *debug {
		if err := r.SetGBufferDebugEnabled(true); err != nil {
			logger.Warnf("debug overlay: %v", err)
		}
	}

	moved := true
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if err := engine.Resize(width, height); err != nil {
			logger.Errorf("resize: %v", err)
		}
		moved = true
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyLeft:
			cam.Orbit(mgl32.DegToRad(-10))
			moved = true
		case glfw.KeyRight:
			cam.Orbit(mgl32.DegToRad(10))
			moved = true
		case glfw.KeyG:
			if err := r.SetGBufferDebugEnabled(!r.GBufferDebugEnabled()); err != nil {
				logger.Warnf("debug overlay: %v", err)
			}
		case glfw.KeyEqual, glfw.KeyKPAdd:
			setResolution(r, logger, r.Resolution()*2)
		case glfw.KeyMinus, glfw.KeyKPSubtract:
			setResolution(r, logger, r.Resolution()/2)
		case glfw.KeyP:
			logger.Infof("%s", r.ProfileString())
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()

		// The G-buffer is ray cast on the CPU, so it is only refreshed when the
		// view changes.
		if moved {
			if err := s.RenderPrePass(); err != nil {
				logger.Errorf("pre-pass: %v", err)
			}
			moved = false
		}

		if err := engine.BeginFrame(); err != nil {
			logger.Errorf("begin frame: %v", err)
			continue
		}
		for _, m := range r.Render() {
			logger.Debugf("mesh %q was not voxelized", m.Name)
		}
		if err := engine.EndFrame(); err != nil {
			logger.Errorf("end frame: %v", err)
		}
	}
}

func setResolution(r *iblshadows.Renderer, logger iblshadows.Logger, res int) {
	if res > 512 {
		return
	}
	if err := r.SetResolution(res); err != nil {
		logger.Warnf("resolution %d: %v", res, err)
		return
	}
	logger.Infof("voxel resolution %d", res)
}

func buildScene(s *scene.Scene) {
	s.AddMesh(scene.NewGround("ground", 12, 12))

	box := scene.NewBox("box", 1.5)
	box.Transform.Position = mgl32.Vec3{-1.5, 0.75, 0}
	s.AddMesh(box)

	sphere := scene.NewSphere("sphere", 1, 24)
	sphere.Transform.Position = mgl32.Vec3{1.5, 1, 0.5}
	s.AddMesh(sphere)

	pillar := scene.NewBox("pillar", 0.6)
	pillar.Transform.Position = mgl32.Vec3{0, 1.5, -2}
	pillar.Transform.Scale = mgl32.Vec3{1, 5, 1}
	s.AddMesh(pillar)
}

func loadSplat(s *scene.Scene, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return splat.NewLoader().Load(s, f)
}
