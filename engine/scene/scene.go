package scene

import (
	"sync"

	"github.com/spaghettifunk/scenestream/engine/core"
)

// Scene owns every node handed over by the composer.
type Scene struct {
	mu    sync.RWMutex
	ids   *core.Identifiers
	nodes []*Node
}

func NewScene() *Scene {
	return &Scene{ids: core.NewIdentifiers()}
}

// Add takes ownership of a node and assigns its id.
func (s *Scene) Add(n *Node) {
	n.ID = s.ids.Acquire(n)
	s.mu.Lock()
	s.nodes = append(s.nodes, n)
	s.mu.Unlock()
}

// Nodes returns a snapshot of the nodes in insertion order.
func (s *Scene) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// FindByName returns every node carrying the name.
func (s *Scene) FindByName(name string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Node
	for _, n := range s.nodes {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

func (s *Scene) Get(id uint32) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Clear drops every node and releases their ids.
func (s *Scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if err := s.ids.Release(n.ID); err != nil {
			core.LogWarn("scene: %s", err.Error())
		}
	}
	s.nodes = nil
}
