// Package splat reads antimatter15 style .splat gaussian splat files and
// imports them into a scene as point clouds.
package splat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gekko3d/iblshadows/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// RecordSize is the byte size of one splat: position and scale as 3 float32
// each, RGBA color, and a quaternion quantized to 4 bytes.
const RecordSize = 32

var (
	ErrUnsupported = errors.New("splat: loading into an asset container is not supported")
	ErrEmpty       = errors.New("splat: file holds no splats")
)

type Splat struct {
	Position mgl32.Vec3
	Scale    mgl32.Vec3
	Color    [4]uint8
	Rotation mgl32.Quat
}

type Cloud struct {
	Splats []Splat
}

// Positions returns the splat centers.
func (c *Cloud) Positions() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(c.Splats))
	for i, s := range c.Splats {
		out[i] = s.Position
	}
	return out
}

// Decode parses a whole .splat stream.
func Decode(r io.Reader) (*Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("splat: read: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("splat: %d bytes is not a multiple of the %d byte record", len(data), RecordSize)
	}

	cloud := &Cloud{Splats: make([]Splat, len(data)/RecordSize)}
	for i := range cloud.Splats {
		rec := data[i*RecordSize : (i+1)*RecordSize]
		f := func(off int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))
		}
		q := func(off int) float32 {
			return (float32(rec[off]) - 128) / 128
		}
		s := &cloud.Splats[i]
		s.Position = mgl32.Vec3{f(0), f(4), f(8)}
		s.Scale = mgl32.Vec3{f(12), f(16), f(20)}
		copy(s.Color[:], rec[24:28])
		s.Rotation = mgl32.Quat{W: q(28), V: mgl32.Vec3{q(29), q(30), q(31)}}.Normalize()
	}
	return cloud, nil
}

// Encode writes a cloud in .splat layout.
func Encode(w io.Writer, c *Cloud) error {
	buf := make([]byte, RecordSize)
	for _, s := range c.Splats {
		put := func(off int, v float32) {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		}
		quant := func(v float32) uint8 {
			return uint8(max(0, min(255, v*128+128)))
		}
		put(0, s.Position.X())
		put(4, s.Position.Y())
		put(8, s.Position.Z())
		put(12, s.Scale.X())
		put(16, s.Scale.Y())
		put(20, s.Scale.Z())
		copy(buf[24:28], s.Color[:])
		buf[28] = quant(s.Rotation.W)
		buf[29] = quant(s.Rotation.V.X())
		buf[30] = quant(s.Rotation.V.Y())
		buf[31] = quant(s.Rotation.V.Z())
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("splat: write: %w", err)
		}
	}
	return nil
}

// AssetContainer would hold loaded assets detached from a scene.
type AssetContainer struct {
	Meshes []*scene.Mesh
}

// Loader is the scene loader for .splat files.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Name() string {
	return "splat"
}

// Extensions maps each handled extension to whether it is binary.
func (l *Loader) Extensions() map[string]bool {
	return map[string]bool{".splat": true}
}

// CanDirectLoad is false: data always arrives as a binary stream.
func (l *Loader) CanDirectLoad() bool {
	return false
}

// ImportMesh decodes r and adds the splat centers to s as one point cloud mesh.
func (l *Loader) ImportMesh(s *scene.Scene, name string, r io.Reader) (*scene.Mesh, *Cloud, error) {
	cloud, err := Decode(r)
	if err != nil {
		return nil, nil, err
	}
	mesh := s.NewMesh(name, scene.Geometry{Positions: cloud.Positions()})
	return mesh, cloud, nil
}

// Load imports r into s under the loader name.
func (l *Loader) Load(s *scene.Scene, r io.Reader) error {
	_, _, err := l.ImportMesh(s, l.Name(), r)
	return err
}

// LoadAssetContainer always fails with ErrUnsupported.
func (l *Loader) LoadAssetContainer(*scene.Scene, io.Reader) (*AssetContainer, error) {
	return nil, ErrUnsupported
}
