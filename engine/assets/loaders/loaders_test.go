package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/resources"
)

const quadOBJ = `# a unit quad
o Quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl none
s off
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestMeshLoaderQuad(t *testing.T) {
	asset, err := (&MeshLoader{}).Load("models/quad.obj", []byte(quadOBJ))
	require.NoError(t, err)
	assert.Equal(t, resources.AssetKindMesh, asset.Kind)
	assert.Equal(t, uint64(len(quadOBJ)), asset.Size)

	mesh, ok := asset.Mesh()
	require.True(t, ok)
	assert.Equal(t, "Quad", mesh.Name)
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, math.NewVec3(0, 0, 0), mesh.Extents.Min)
	assert.Equal(t, math.NewVec3(1, 1, 0), mesh.Extents.Max)
	assert.Equal(t, math.NewVec2(1, 1), mesh.Vertices[2].Texcoord)
	assert.Equal(t, math.NewVec3(0, 0, 1), mesh.Vertices[0].Normal)
}

func TestMeshLoaderGeneratesNormalsAndNamesFromFile(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	asset, err := (&MeshLoader{}).Load("box.mesh", []byte(src))
	require.NoError(t, err)
	mesh, ok := asset.Mesh()
	require.True(t, ok)
	assert.Equal(t, "box", mesh.Name)
	require.Len(t, mesh.Vertices, 3)
	for _, v := range mesh.Vertices {
		assert.True(t, v.Normal.Compare(math.NewVec3(0, 0, 1), math.K_FLOAT_EPSILON), "normal %v", v.Normal)
	}
}

func TestMeshLoaderSharesRepeatedCorners(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3\nf 1 3 4\n"
	asset, err := (&MeshLoader{}).Load("q.obj", []byte(src))
	require.NoError(t, err)
	mesh, _ := asset.Mesh()
	assert.Len(t, mesh.Vertices, 4)
	assert.Len(t, mesh.Indices, 6)
}

func TestMeshLoaderErrors(t *testing.T) {
	cases := map[string]string{
		"no faces":       "v 0 0 0\nv 1 0 0\n",
		"out of range":   "v 0 0 0\nf 1 2 3\n",
		"bad vertex":     "v 0 zero 0\n",
		"short face":     "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"zero index":     "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"not obj at all": "\x89PNG\r\n\x1a\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := (&MeshLoader{}).Load("bad.obj", []byte(src))
			assert.Error(t, err)
		})
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextureLoaderRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 128})
	asset, err := (&TextureLoader{}).Load("textures/brick.png", encodePNG(t, img))
	require.NoError(t, err)
	assert.Equal(t, resources.AssetKindTexture, asset.Kind)

	tex, ok := asset.Texture()
	require.True(t, ok)
	assert.Equal(t, "brick", tex.Name)
	assert.Equal(t, uint32(4), tex.Width)
	assert.Equal(t, uint32(2), tex.Height)
	assert.Equal(t, uint8(4), tex.ChannelCount)
	assert.True(t, tex.HasTransparency)
	require.NotNil(t, tex.Image)

	require.NoError(t, (&TextureLoader{}).Unload(asset))
	assert.Nil(t, tex.Image)
}

func TestTextureLoaderGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	asset, err := (&TextureLoader{}).Load("mask.png", encodePNG(t, img))
	require.NoError(t, err)
	tex, _ := asset.Texture()
	assert.Equal(t, uint8(1), tex.ChannelCount)
	assert.False(t, tex.HasTransparency)
}

func TestTextureLoaderRejectsGarbage(t *testing.T) {
	_, err := (&TextureLoader{}).Load("fake.png", []byte("v 0 0 0\n"))
	assert.Error(t, err)
}

func TestMaterialLoaderFull(t *testing.T) {
	src := `
name = "brick"
shader = "Custom.Lit"
diffuse_colour = [1.0, 0.5, 0.25, 1.0]
shininess = 32.0
diffuse_map_name = "brick_diffuse"
specular_map_name = "brick_spec"
normal_map_name = "brick_norm"
`
	asset, err := (&MaterialLoader{}).Load("materials/brick.mat", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, resources.AssetKindMaterial, asset.Kind)

	mat, ok := asset.Material()
	require.True(t, ok)
	assert.Equal(t, "brick", mat.Name)
	assert.Equal(t, "Custom.Lit", mat.ShaderName)
	assert.Equal(t, math.NewVec4(1, 0.5, 0.25, 1), mat.DiffuseColour)
	assert.Equal(t, float32(32), mat.Shininess)
	assert.Equal(t, "brick_diffuse", mat.DiffuseMapName)
	assert.Equal(t, "brick_spec", mat.SpecularMapName)
	assert.Equal(t, "brick_norm", mat.NormalMapName)
	assert.Nil(t, mat.MainTexture())
}

func TestMaterialLoaderDefaults(t *testing.T) {
	asset, err := (&MaterialLoader{}).Load("red.toml", []byte(`diffuse_colour = [1.0, 0.0, 0.0, 1.0]`))
	require.NoError(t, err)
	mat, _ := asset.Material()
	assert.Equal(t, "red", mat.Name)
	assert.Equal(t, resources.DefaultShaderName, mat.ShaderName)
	assert.Equal(t, resources.NewDefaultMaterial().Shininess, mat.Shininess)
}

func TestMaterialLoaderSkipsUnknownKeys(t *testing.T) {
	asset, err := (&MaterialLoader{}).Load("m.mat", []byte("name = \"m\"\nroughness = 0.3\n"))
	require.NoError(t, err)
	mat, _ := asset.Material()
	assert.Equal(t, "m", mat.Name)
}

func TestMaterialLoaderValidation(t *testing.T) {
	cases := map[string]string{
		"colour out of range": `diffuse_colour = [2.0, 0.0, 0.0, 1.0]`,
		"colour length":       `diffuse_colour = [1.0, 0.0, 0.0]`,
		"negative shininess":  `shininess = -1.0`,
		"not toml":            `name = `,
		"wrong type":          `name = 5`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := (&MaterialLoader{}).Load("bad.mat", []byte(src))
			assert.Error(t, err)
		})
	}
}
