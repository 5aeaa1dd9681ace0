package assets

import (
	"path"
	"strings"

	"github.com/spaghettifunk/scenestream/engine/assets/loaders"
	"github.com/spaghettifunk/scenestream/engine/resources"
)

// Loader decodes the raw bytes of a package entry into a typed asset.
type Loader interface {
	Load(name string, data []byte) (*resources.Asset, error)
	Unload(*resources.Asset) error
}

// Loaders maps each supported kind to its decoder.
type Loaders map[resources.AssetKind]Loader

// DefaultLoaders returns the built-in decoders for every supported kind.
func DefaultLoaders() Loaders {
	return Loaders{
		resources.AssetKindMesh:     &loaders.MeshLoader{},
		resources.AssetKindTexture:  &loaders.TextureLoader{},
		resources.AssetKindMaterial: &loaders.MaterialLoader{},
	}
}

// DetermineAssetKind derives the kind of a package entry from its extension.
func DetermineAssetKind(name string) resources.AssetKind {
	switch strings.ToLower(path.Ext(name)) {
	case ".obj", ".mesh":
		return resources.AssetKindMesh
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return resources.AssetKindTexture
	case ".mat", ".toml":
		return resources.AssetKindMaterial
	default:
		return resources.AssetKindUnknown
	}
}
