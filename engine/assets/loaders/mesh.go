package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/resources"
)

// MeshLoader decodes Wavefront OBJ text into indexed triangle geometry.
// Polygons are fan-triangulated; materials and smoothing groups are ignored.
type MeshLoader struct{}

type objCorner struct {
	v, vt, vn int
}

func (ml *MeshLoader) Load(name string, data []byte) (*resources.Asset, error) {
	var (
		positions []math.Vec3
		texcoords []math.Vec2
		normals   []math.Vec3
		vertices  []math.Vertex3D
		indices   []uint32
		objName   string
	)
	seen := make(map[objCorner]uint32)
	hasNormals := true

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			positions = append(positions, math.NewVec3(v[0], v[1], v[2]))
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: texcoord: %w", lineNo, err)
			}
			texcoords = append(texcoords, math.NewVec2(v[0], v[1]))
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			normals = append(normals, math.NewVec3(v[0], v[1], v[2]))
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				c, err := parseCorner(ref, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				if c.vn < 0 {
					hasNormals = false
				}
				idx, ok := seen[c]
				if !ok {
					vert := math.Vertex3D{
						Position: positions[c.v],
						Colour:   math.NewVec4One(),
					}
					if c.vt >= 0 {
						vert.Texcoord = texcoords[c.vt]
					}
					if c.vn >= 0 {
						vert.Normal = normals[c.vn]
					}
					idx = uint32(len(vertices))
					vertices = append(vertices, vert)
					seen[c] = idx
				}
				face = append(face, idx)
			}
			for i := 1; i+1 < len(face); i++ {
				indices = append(indices, face[0], face[i], face[i+1])
			}
		case "o", "g":
			if objName == "" && len(fields) > 1 {
				objName = strings.Join(fields[1:], " ")
			}
		case "mtllib", "usemtl", "s", "l", "p":
			// not used by the scene
		default:
			core.LogDebug("mesh '%s': unknown statement '%s' on line %d. Skipping...", name, fields[0], lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("mesh '%s' has no faces", name)
	}
	if !hasNormals {
		math.GeometryGenerateNormals(vertices, indices)
	}
	if objName == "" {
		objName = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}

	return &resources.Asset{
		Kind: resources.AssetKindMesh,
		Path: name,
		Size: uint64(len(data)),
		Data: &resources.Mesh{
			Name:     objName,
			Vertices: vertices,
			Indices:  indices,
			Extents:  math.GeometryExtents(vertices),
		},
	}, nil
}

func (ml *MeshLoader) Unload(asset *resources.Asset) error {
	if mesh, ok := asset.Mesh(); ok {
		mesh.Vertices = nil
		mesh.Indices = nil
	}
	return nil
}

func parseFloats(fields []string, want int) ([]float32, error) {
	if len(fields) < want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(fields))
	}
	out := make([]float32, want)
	for i := 0; i < want; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value '%s'", fields[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner resolves a face reference ("v", "v/vt", "v//vn", "v/vt/vn") into
// zero-based indices, -1 marking an absent element. Negative OBJ indices are
// relative to the end of the list read so far.
func parseCorner(ref string, nv, nvt, nvn int) (objCorner, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return objCorner{}, fmt.Errorf("invalid face reference '%s'", ref)
	}
	c := objCorner{v: -1, vt: -1, vn: -1}
	limits := []int{nv, nvt, nvn}
	targets := []*int{&c.v, &c.vt, &c.vn}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return objCorner{}, fmt.Errorf("face reference '%s' has no vertex", ref)
			}
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n == 0 {
			return objCorner{}, fmt.Errorf("invalid face reference '%s'", ref)
		}
		if n < 0 {
			n = limits[i] + n
		} else {
			n--
		}
		if n < 0 || n >= limits[i] {
			return objCorner{}, fmt.Errorf("face reference '%s' out of range", ref)
		}
		*targets[i] = n
	}
	return c, nil
}
