package scene

import (
	"sync"

	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/resources"
)

/**
 * @brief A materialized scene entity: a transform plus the assets attached to
 * it. Bindings may be written by several attachment workers at once, every
 * access goes through the node's lock.
 */
type Node struct {
	/** @brief Unique id within the owning scene. */
	ID uint32
	/** @brief The node name. Not required to be unique. */
	Name string

	mu        sync.RWMutex
	transform *math.Transform
	/** @brief The renderable geometry, nil for transform-only nodes. */
	mesh *resources.Mesh
	/** @brief The visual surface, nil until a mesh or material is attached. */
	surface *resources.Material
}

// NewNode creates a node from a position, Euler angles in degrees and a scale.
func NewNode(name string, position, eulerDegrees, scale math.Vec3) *Node {
	return &Node{
		Name:      name,
		transform: math.TransformFromEulerDegrees(position, eulerDegrees, scale),
	}
}

// Transform returns a copy of the node transform.
func (n *Node) Transform() math.Transform {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return *n.transform
}

func (n *Node) Position() math.Vec3 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform.Position
}

func (n *Node) Rotation() math.Quaternion {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform.Rotation
}

func (n *Node) Scale() math.Vec3 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform.Scale
}

// World returns the world matrix, recomputing the local matrix if needed.
func (n *Node) World() math.Mat4 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transform.GetWorld()
}

func (n *Node) Mesh() *resources.Mesh {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mesh
}

// Surface returns a copy of the visual surface binding, nil when none exists.
func (n *Node) Surface() *resources.Material {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.surface == nil {
		return nil
	}
	surface := *n.surface
	return &surface
}

// MainTexture returns the primary image of the surface, nil when the node has
// no surface or the surface has no image.
func (n *Node) MainTexture() *resources.Texture {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.surface.MainTexture()
}

// HasBindings reports whether any asset has been attached.
func (n *Node) HasBindings() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mesh != nil || n.surface != nil
}

// BindMesh sets the mesh binding and makes sure a surface exists to draw it
// with. An existing surface is kept.
func (n *Node) BindMesh(mesh *resources.Mesh) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mesh = mesh
	if n.surface == nil {
		n.surface = resources.NewDefaultMaterial()
	}
}

// BindSurface replaces the surface binding wholesale.
func (n *Node) BindSurface(material *resources.Material) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.surface = material
}

// SetMainTexture assigns the primary image of the current surface. It returns
// false, changing nothing, when the node has no surface yet.
func (n *Node) SetMainTexture(texture *resources.Texture) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.surface == nil {
		return false
	}
	n.surface.SetMainTexture(texture)
	return true
}
