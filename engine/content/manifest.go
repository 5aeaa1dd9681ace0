package content

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/resources"
)

// SceneManifest lists the nodes of one build. Order carries no meaning beyond
// the order nodes are created in.
type SceneManifest []NodeDescriptor

type NodeDescriptor struct {
	Name string
	// Position, Rotation (Euler degrees) and Scale of the node.
	Position   math.Vec3
	Rotation   math.Vec3
	Scale      math.Vec3
	Components []ComponentDescriptor
}

type ComponentDescriptor struct {
	Kind resources.AssetKind
	Path string
	// RawKind is the tag as written in the manifest, kept for diagnostics
	// when Kind is AssetKindUnknown.
	RawKind string
}

// ComponentCount is the number of attachments the manifest will dispatch.
func (m SceneManifest) ComponentCount() int {
	n := 0
	for _, d := range m {
		n += len(d.Components)
	}
	return n
}

type manifestNode struct {
	Name       string              `json:"name"`
	Position   []float32           `json:"position"`
	Rotation   []float32           `json:"rotation"`
	Scale      []float32           `json:"scale"`
	Components []manifestComponent `json:"components"`
}

type manifestComponent struct {
	Type         string  `json:"type"`
	RelativePath *string `json:"relativePath"`
	// Path is the key used by older manifests.
	Path *string `json:"path"`
}

// ParseManifest decodes a manifest body. Anything other than a JSON array of
// node objects with 3-element vectors is core.ErrParseError.
func ParseManifest(data []byte) (SceneManifest, error) {
	var nodes []*manifestNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", core.ErrParseError, err)
	}
	if nodes == nil {
		return nil, fmt.Errorf("%w: manifest is not an array", core.ErrParseError)
	}

	manifest := make(SceneManifest, 0, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: manifest entry %d is null", core.ErrParseError, i)
		}
		desc := NodeDescriptor{
			Name:       n.Name,
			Scale:      math.NewVec3One(),
			Components: make([]ComponentDescriptor, 0, len(n.Components)),
		}
		var err error
		if desc.Position, err = vectorField(n.Position, math.NewVec3Zero()); err != nil {
			return nil, fmt.Errorf("%w: node %d (%s) position: %w", core.ErrParseError, i, n.Name, err)
		}
		if desc.Rotation, err = vectorField(n.Rotation, math.NewVec3Zero()); err != nil {
			return nil, fmt.Errorf("%w: node %d (%s) rotation: %w", core.ErrParseError, i, n.Name, err)
		}
		if desc.Scale, err = vectorField(n.Scale, math.NewVec3One()); err != nil {
			return nil, fmt.Errorf("%w: node %d (%s) scale: %w", core.ErrParseError, i, n.Name, err)
		}
		for _, c := range n.Components {
			comp := ComponentDescriptor{
				Kind:    resources.ParseAssetKind(c.Type),
				RawKind: c.Type,
			}
			switch {
			case c.RelativePath != nil:
				comp.Path = *c.RelativePath
			case c.Path != nil:
				comp.Path = *c.Path
			}
			desc.Components = append(desc.Components, comp)
		}
		manifest = append(manifest, desc)
	}
	return manifest, nil
}

func vectorField(v []float32, def math.Vec3) (math.Vec3, error) {
	if v == nil {
		return def, nil
	}
	vec, ok := math.NewVec3FromSlice(v)
	if !ok {
		return math.Vec3{}, fmt.Errorf("expected 3 values, got %d", len(v))
	}
	return vec, nil
}

// ManifestFetcher loads the manifest of a build.
type ManifestFetcher struct {
	source  Source
	locator Locator
}

func NewManifestFetcher(source Source, locator Locator) *ManifestFetcher {
	return &ManifestFetcher{source: source, locator: locator}
}

func (mf *ManifestFetcher) Fetch(ctx context.Context, id BuildIdentity) (SceneManifest, error) {
	if id == "" {
		return nil, core.ErrIdentityUnresolved
	}
	uri := mf.locator.ManifestURI(id)
	data, err := mf.source.Fetch(ctx, uri)
	if err != nil {
		core.LogError("failed to fetch manifest for build '%s' from '%s': %s", id, uri, err.Error())
		return nil, fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		core.LogError("failed to parse manifest for build '%s': %s", id, err.Error())
		return nil, err
	}
	core.LogDebug("manifest for build '%s' lists %d nodes and %d components", id, len(manifest), manifest.ComponentCount())
	return manifest, nil
}
