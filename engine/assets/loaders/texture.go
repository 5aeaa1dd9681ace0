package loaders

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/scenestream/engine/resources"
)

type TextureLoader struct{}

func (tl *TextureLoader) Load(name string, data []byte) (*resources.Asset, error) {
	// Decodes the image (e.g., PNG, JPEG, BMP, TIFF, WebP)
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	channels := channelCount(img.ColorModel())

	opaque := true
	if o, ok := img.(interface{ Opaque() bool }); ok {
		opaque = o.Opaque()
	} else if channels == 4 {
		opaque = false
	}

	return &resources.Asset{
		Kind: resources.AssetKindTexture,
		Path: name,
		Size: uint64(len(data)),
		Data: &resources.Texture{
			Name:            strings.TrimSuffix(path.Base(name), path.Ext(name)),
			Width:           uint32(bounds.Dx()),
			Height:          uint32(bounds.Dy()),
			ChannelCount:    channels,
			HasTransparency: !opaque,
			Image:           img,
		},
	}, nil
}

func (tl *TextureLoader) Unload(asset *resources.Asset) error {
	if tex, ok := asset.Texture(); ok {
		tex.Image = nil
	}
	return nil
}

func channelCount(model color.Model) uint8 {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.YCbCrModel, color.CMYKModel:
		return 3
	default:
		return 4
	}
}
