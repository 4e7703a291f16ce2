package splat

import (
	"bytes"
	"testing"

	"github.com/gekko3d/iblshadows/gfx/soft"
	"github.com/gekko3d/iblshadows/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCloud() *Cloud {
	return &Cloud{Splats: []Splat{
		{Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{0.1, 0.1, 0.1}, Color: [4]uint8{255, 0, 0, 255}, Rotation: mgl32.QuatIdent()},
		{Position: mgl32.Vec3{-1, 0, 4}, Scale: mgl32.Vec3{0.2, 0.3, 0.4}, Color: [4]uint8{0, 255, 0, 128}, Rotation: mgl32.QuatIdent()},
	}}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleCloud()))
	assert.Equal(t, 2*RecordSize, buf.Len())

	cloud, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, cloud.Splats, 2)
	assert.Equal(t, mgl32.Vec3{-1, 0, 4}, cloud.Splats[1].Position)
	assert.Equal(t, [4]uint8{0, 255, 0, 128}, cloud.Splats[1].Color)
	assert.InDelta(t, 1, cloud.Splats[0].Rotation.W, 1e-6)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode(bytes.NewReader(make([]byte, RecordSize+1)))
	assert.ErrorContains(t, err, "not a multiple")
}

func TestLoader(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, "splat", l.Name())
	assert.True(t, l.Extensions()[".splat"])
	assert.False(t, l.CanDirectLoad())

	s := scene.New(soft.NewEngine(1, 1))
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleCloud()))
	mesh, cloud, err := l.ImportMesh(s, "garden", &buf)
	require.NoError(t, err)
	assert.Len(t, cloud.Splats, 2)
	assert.True(t, mesh.IsPointCloud())
	assert.Equal(t, []*scene.Mesh{mesh}, s.Meshes())

	assert.Error(t, l.Load(s, bytes.NewReader(nil)))
	assert.Len(t, s.Meshes(), 1, "failed loads add nothing")
}

func TestLoader_AssetContainerUnsupported(t *testing.T) {
	container, err := NewLoader().LoadAssetContainer(nil, nil)
	assert.Nil(t, container)
	assert.ErrorIs(t, err, ErrUnsupported)
}
