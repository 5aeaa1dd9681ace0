package resources

import (
	"image"
	"strings"

	"github.com/spaghettifunk/scenestream/engine/math"
)

// AssetKind is the closed set of asset types a manifest component can name.
type AssetKind int

/** @brief Supported asset kinds. Anything else decodes to AssetKindUnknown. */
const (
	AssetKindUnknown AssetKind = iota
	/** @brief Renderable geometry. */
	AssetKindMesh
	/** @brief An image assigned to a surface as its primary texture. */
	AssetKindTexture
	/** @brief A full surface description. */
	AssetKindMaterial
)

// ParseAssetKind maps the manifest "type" tag onto an AssetKind. Tags are
// matched exactly, as they are written by the packaging tool.
func ParseAssetKind(tag string) AssetKind {
	switch strings.TrimSpace(tag) {
	case "Mesh":
		return AssetKindMesh
	case "Texture":
		return AssetKindTexture
	case "Material":
		return AssetKindMaterial
	default:
		return AssetKindUnknown
	}
}

func (k AssetKind) String() string {
	switch k {
	case AssetKindMesh:
		return "Mesh"
	case AssetKindTexture:
		return "Texture"
	case AssetKindMaterial:
		return "Material"
	default:
		return "Unknown"
	}
}

// Supported reports whether an attachment can be issued for the kind.
func (k AssetKind) Supported() bool {
	return k == AssetKindMesh || k == AssetKindTexture || k == AssetKindMaterial
}

/**
 * @brief A generic structure for an asset read out of a package. All asset
 * loaders produce one of these; Data holds *Mesh, *Texture or *Material.
 */
type Asset struct {
	/** @brief The asset kind. */
	Kind AssetKind
	/** @brief The path of the asset inside its package. */
	Path string
	/** @brief The size of the encoded asset in bytes. */
	Size uint64
	/** @brief The decoded asset. */
	Data interface{}
}

func (a *Asset) Mesh() (*Mesh, bool) {
	if a == nil {
		return nil, false
	}
	m, ok := a.Data.(*Mesh)
	return m, ok
}

func (a *Asset) Texture() (*Texture, bool) {
	if a == nil {
		return nil, false
	}
	t, ok := a.Data.(*Texture)
	return t, ok
}

func (a *Asset) Material() (*Material, bool) {
	if a == nil {
		return nil, false
	}
	m, ok := a.Data.(*Material)
	return m, ok
}

/**
 * @brief Indexed triangle geometry.
 */
type Mesh struct {
	/** @brief The mesh name, usually the object name in the source file. */
	Name string
	/** @brief The vertices. */
	Vertices []math.Vertex3D
	/** @brief Triangle list indices into Vertices. */
	Indices []uint32
	/** @brief The extents of the geometry in local coordinates. */
	Extents math.Extents3D
}

/**
 * @brief Represents a decoded texture.
 */
type Texture struct {
	/** @brief The texture name. */
	Name string
	/** @brief The texture width. */
	Width uint32
	/** @brief The texture height. */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Indicates the source image carries an alpha channel. */
	HasTransparency bool
	/** @brief The decoded image. */
	Image image.Image
}

/** @brief A collection of texture uses */
type TextureUse int

const (
	TextureUseUnknown TextureUse = iota
	TextureUseMapDiffuse
	TextureUseMapSpecular
	TextureUseMapNormal
)

/**
 * @brief A structure which maps a texture to a use.
 */
type TextureMap struct {
	Texture *Texture
	Use     TextureUse
}

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief The shader the default material renders with. */
const DefaultShaderName string = "Builtin.Material"

/**
 * @brief A material, which represents various properties of a surface such
 * as texture, colour and shininess. A node's visual surface is one of these.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief The shader this material renders with. */
	ShaderName string
	/** @brief The diffuse colour. */
	DiffuseColour math.Vec4
	/** @brief The material shininess, determines how concentrated the specular lighting is. */
	Shininess float32
	/** @brief The primary image of the surface. */
	DiffuseMap TextureMap
	/** @brief Names of maps the material references, resolved by the host. */
	DiffuseMapName  string
	SpecularMapName string
	NormalMapName   string
}

// NewDefaultMaterial returns the surface a node gets when a mesh is attached
// without a material.
func NewDefaultMaterial() *Material {
	return &Material{
		Name:          DefaultMaterialName,
		ShaderName:    DefaultShaderName,
		DiffuseColour: math.NewVec4One(),
		Shininess:     8.0,
		DiffuseMap:    TextureMap{Use: TextureUseMapDiffuse},
	}
}

// MainTexture is the surface's primary image, nil when none is assigned.
func (m *Material) MainTexture() *Texture {
	if m == nil {
		return nil
	}
	return m.DiffuseMap.Texture
}

// SetMainTexture assigns the surface's primary image.
func (m *Material) SetMainTexture(t *Texture) {
	m.DiffuseMap.Texture = t
	m.DiffuseMap.Use = TextureUseMapDiffuse
}
