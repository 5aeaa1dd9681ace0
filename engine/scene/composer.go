package scene

import (
	"context"
	"errors"

	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/systems"
)

// Package is the opened asset package a composition reads from.
type Package interface {
	AssetSource
	Unload(unloadAllLoadedObjects bool) error
}

// Composition tracks the nodes created for one manifest and the attachments
// still in flight for them.
type Composition struct {
	nodes       []*Node
	attachments []*systems.Future[AttachResult]

	released   chan struct{}
	releaseErr error
}

func (c *Composition) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Dispatched is the number of attachments issued, including rejected ones.
func (c *Composition) Dispatched() int { return len(c.attachments) }

// Pending is the number of attachments that have not settled yet.
func (c *Composition) Pending() int {
	n := 0
	for _, f := range c.attachments {
		select {
		case <-f.Done():
		default:
			n++
		}
	}
	return n
}

// Wait blocks until every attachment has settled and returns their outcomes
// in dispatch order.
func (c *Composition) Wait(ctx context.Context) ([]AttachResult, error) {
	results := make([]AttachResult, 0, len(c.attachments))
	for _, f := range c.attachments {
		res, err := f.Wait(ctx)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Released is closed once the package has been unloaded.
func (c *Composition) Released() <-chan struct{} {
	return c.released
}

// ReleaseErr is the error returned by the package unload. Only meaningful
// after Released is closed.
func (c *Composition) ReleaseErr() error {
	<-c.released
	return c.releaseErr
}

type Composer struct {
	scene    *Scene
	attacher *Attacher
	bus      *core.EventBus
	metrics  *core.Metrics
}

func NewComposer(scene *Scene, attacher *Attacher, bus *core.EventBus, metrics *core.Metrics) *Composer {
	if metrics == nil {
		metrics = core.NewMetrics()
	}
	return &Composer{scene: scene, attacher: attacher, bus: bus, metrics: metrics}
}

// Compose creates one node per descriptor, in manifest order, and dispatches
// its attachments without waiting for them. The package is released with
// Unload(false) once every dispatched attachment has settled. A cancelled
// context abandons the nodes not created yet.
func (c *Composer) Compose(ctx context.Context, manifest content.SceneManifest, pkg Package) (*Composition, error) {
	if pkg == nil {
		return nil, errors.New("compose: no package")
	}
	comp := &Composition{
		nodes:    make([]*Node, 0, len(manifest)),
		released: make(chan struct{}),
	}

	var err error
	for _, desc := range manifest {
		if err = ctx.Err(); err != nil {
			core.LogWarn("composition abandoned after %d of %d nodes: %s", len(comp.nodes), len(manifest), err.Error())
			break
		}
		node := NewNode(desc.Name, desc.Position, desc.Rotation, desc.Scale)
		c.scene.Add(node)
		comp.nodes = append(comp.nodes, node)
		c.metrics.NodeCreated()
		c.bus.Fire(core.EventContext{Type: core.EVENT_CODE_NODE_CREATED, Data: &core.NodeEvent{RunID: core.RunIDFromContext(ctx), NodeID: node.ID, Name: node.Name}})
		core.LogDebug("loading node '%s' with %d components", node.Name, len(desc.Components))

		if len(desc.Components) > 0 {
			comp.attachments = append(comp.attachments, c.attacher.AttachAll(ctx, pkg, node, desc.Components)...)
		}
	}

	go func() {
		defer close(comp.released)
		if _, werr := comp.Wait(context.Background()); werr != nil {
			comp.releaseErr = werr
			return
		}
		comp.releaseErr = pkg.Unload(false)
	}()

	return comp, err
}
