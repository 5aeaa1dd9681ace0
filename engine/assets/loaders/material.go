package loaders

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/resources"
)

// MaterialLoader decodes TOML material descriptions:
//
//	name = "brick"
//	shader = "Builtin.Material"
//	diffuse_colour = [1.0, 0.8, 0.8, 1.0]
//	shininess = 32.0
//	diffuse_map_name = "brick_diffuse"
type MaterialLoader struct{}

type materialFile struct {
	Name            string    `toml:"name"`
	Shader          string    `toml:"shader"`
	DiffuseColour   []float32 `toml:"diffuse_colour"`
	Shininess       *float32  `toml:"shininess"`
	DiffuseMapName  string    `toml:"diffuse_map_name"`
	SpecularMapName string    `toml:"specular_map_name"`
	NormalMapName   string    `toml:"normal_map_name"`
}

func (ml *MaterialLoader) Load(name string, data []byte) (*resources.Asset, error) {
	mf, err := decodeMaterialFile(name, data)
	if err != nil {
		return nil, err
	}

	mat := resources.NewDefaultMaterial()
	mat.Name = strings.TrimSpace(mf.Name)
	if mat.Name == "" {
		mat.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	if s := strings.TrimSpace(mf.Shader); s != "" {
		mat.ShaderName = s
	}
	if len(mf.DiffuseColour) > 0 {
		if len(mf.DiffuseColour) != 4 {
			return nil, fmt.Errorf("invalid diffuse_colour, expected 4 values, got %d", len(mf.DiffuseColour))
		}
		mat.DiffuseColour = math.NewVec4(mf.DiffuseColour[0], mf.DiffuseColour[1], mf.DiffuseColour[2], mf.DiffuseColour[3])
	}
	if mf.Shininess != nil {
		mat.Shininess = *mf.Shininess
	}
	mat.DiffuseMapName = mf.DiffuseMapName
	mat.SpecularMapName = mf.SpecularMapName
	mat.NormalMapName = mf.NormalMapName

	if err := validateMaterial(mat); err != nil {
		return nil, err
	}

	return &resources.Asset{
		Kind: resources.AssetKindMaterial,
		Path: name,
		Size: uint64(len(data)),
		Data: mat,
	}, nil
}

// decodeMaterialFile decodes strictly first so unknown keys can be reported,
// then falls back to a lenient decode that skips them.
func decodeMaterialFile(name string, data []byte) (*materialFile, error) {
	mf := &materialFile{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(mf)
	if err == nil {
		return mf, nil
	}

	var strict *toml.StrictMissingError
	if !errors.As(err, &strict) {
		return nil, err
	}
	core.LogWarn("material '%s': unknown keys found in file. Skipping...\n%s", name, strict.String())

	mf = &materialFile{}
	if err := toml.Unmarshal(data, mf); err != nil {
		return nil, err
	}
	return mf, nil
}

func validateMaterial(material *resources.Material) error {
	// Check that DiffuseColour values are within [0.0, 1.0] range
	if !isValidVec4(material.DiffuseColour) {
		return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
	}

	// Check shininess for a non-negative value
	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value")
	}
	return nil
}

func isValidVec4(v math.Vec4) bool {
	return inRange(v.X) && inRange(v.Y) && inRange(v.Z) && inRange(v.W)
}

func inRange(value float32) bool {
	return math.Clamp(value, 0.0, 1.0) == value
}

func (ml *MaterialLoader) Unload(asset *resources.Asset) error {
	if mat, ok := asset.Material(); ok {
		mat.DiffuseMap.Texture = nil
	}
	return nil
}
