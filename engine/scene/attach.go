package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/resources"
	"github.com/spaghettifunk/scenestream/engine/systems"
)

// ErrNoSurface is reported when a texture arrives for a node that has no
// surface to carry it.
var ErrNoSurface = errors.New("node has no surface binding")

// AttachOrder controls when a node's bindings are applied.
type AttachOrder string

const (
	// AttachSequential loads concurrently but applies a node's bindings in
	// manifest order.
	AttachSequential AttachOrder = "sequential"
	// AttachCompletion applies each binding as soon as its load completes.
	AttachCompletion AttachOrder = "completion"
)

func ParseAttachOrder(s string) (AttachOrder, error) {
	switch o := AttachOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", AttachSequential:
		return AttachSequential, nil
	case AttachCompletion:
		return AttachCompletion, nil
	default:
		return "", fmt.Errorf("unknown attach order %q", s)
	}
}

// AssetSource issues asynchronous typed loads. *assets.Package satisfies it.
type AssetSource interface {
	LoadAsset(ctx context.Context, path string, kind resources.AssetKind) *systems.Future[*resources.Asset]
}

// AttachResult is the outcome of one node-component attachment.
type AttachResult struct {
	Node      *Node
	Component content.ComponentDescriptor
	Applied   bool
	Err       error
}

// Skipped reports an attachment that was never meant to apply, as opposed to
// one whose load failed.
func (r AttachResult) Skipped() bool {
	return errors.Is(r.Err, core.ErrUnsupportedComponentKind) || errors.Is(r.Err, ErrNoSurface)
}

type Attacher struct {
	order   AttachOrder
	bus     *core.EventBus
	metrics *core.Metrics
}

func NewAttacher(order AttachOrder, bus *core.EventBus, metrics *core.Metrics) *Attacher {
	if order == "" {
		order = AttachSequential
	}
	if metrics == nil {
		metrics = core.NewMetrics()
	}
	return &Attacher{order: order, bus: bus, metrics: metrics}
}

func (a *Attacher) Order() AttachOrder { return a.order }

// Attach loads one asset and binds it to the node once the load completes.
// The returned future always resolves with a nil error; the outcome is in
// the result.
func (a *Attacher) Attach(ctx context.Context, src AssetSource, node *Node, comp content.ComponentDescriptor) *systems.Future[AttachResult] {
	if res, done := a.reject(ctx, node, comp); done {
		return systems.Resolved(res, nil)
	}
	load := src.LoadAsset(ctx, comp.Path, comp.Kind)
	f, complete := systems.NewPromise[AttachResult]()
	go func() {
		complete(a.settle(ctx, load, node, comp), nil)
	}()
	return f
}

// AttachAll dispatches every component of a node. Loads are issued at once;
// with AttachSequential their bindings are applied in the given order.
func (a *Attacher) AttachAll(ctx context.Context, src AssetSource, node *Node, comps []content.ComponentDescriptor) []*systems.Future[AttachResult] {
	out := make([]*systems.Future[AttachResult], len(comps))
	if a.order == AttachCompletion {
		for i, comp := range comps {
			out[i] = a.Attach(ctx, src, node, comp)
		}
		return out
	}

	type pending struct {
		comp     content.ComponentDescriptor
		load     *systems.Future[*resources.Asset]
		complete func(AttachResult, error)
	}
	queue := make([]pending, 0, len(comps))
	for i, comp := range comps {
		if res, done := a.reject(ctx, node, comp); done {
			out[i] = systems.Resolved(res, nil)
			continue
		}
		f, complete := systems.NewPromise[AttachResult]()
		out[i] = f
		queue = append(queue, pending{comp: comp, load: src.LoadAsset(ctx, comp.Path, comp.Kind), complete: complete})
	}
	if len(queue) > 0 {
		go func() {
			for _, p := range queue {
				p.complete(a.settle(ctx, p.load, node, p.comp), nil)
			}
		}()
	}
	return out
}

// reject handles components that never issue a load.
func (a *Attacher) reject(ctx context.Context, node *Node, comp content.ComponentDescriptor) (AttachResult, bool) {
	a.metrics.AttachmentDispatched()
	if comp.Kind.Supported() {
		return AttachResult{}, false
	}
	res := AttachResult{
		Node:      node,
		Component: comp,
		Err:       fmt.Errorf("%w: %q", core.ErrUnsupportedComponentKind, comp.RawKind),
	}
	core.LogWith("node", node.Name, "path", comp.Path).Warn(fmt.Sprintf("asset type '%s' is not supported", comp.RawKind))
	a.finish(ctx, res)
	return res, true
}

func (a *Attacher) settle(ctx context.Context, load *systems.Future[*resources.Asset], node *Node, comp content.ComponentDescriptor) AttachResult {
	res := AttachResult{Node: node, Component: comp}
	asset, err := load.Wait(ctx)
	if err != nil {
		res.Err = err
	} else {
		res.Applied, res.Err = bind(node, comp.Kind, asset)
	}
	a.finish(ctx, res)
	return res
}

func bind(node *Node, kind resources.AssetKind, asset *resources.Asset) (bool, error) {
	switch kind {
	case resources.AssetKindMesh:
		mesh, ok := asset.Mesh()
		if !ok {
			return false, core.ErrAssetTypeMismatch
		}
		node.BindMesh(mesh)
	case resources.AssetKindTexture:
		tex, ok := asset.Texture()
		if !ok {
			return false, core.ErrAssetTypeMismatch
		}
		if !node.SetMainTexture(tex) {
			return false, ErrNoSurface
		}
	case resources.AssetKindMaterial:
		mat, ok := asset.Material()
		if !ok {
			return false, core.ErrAssetTypeMismatch
		}
		node.BindSurface(mat)
	default:
		return false, core.ErrUnsupportedComponentKind
	}
	return true, nil
}

func (a *Attacher) finish(ctx context.Context, res AttachResult) {
	ev := &core.AttachmentEvent{
		RunID:    core.RunIDFromContext(ctx),
		NodeID:   res.Node.ID,
		NodeName: res.Node.Name,
		Path:     res.Component.Path,
		Kind:     res.Component.Kind.String(),
		Err:      res.Err,
	}
	switch {
	case res.Applied:
		a.metrics.AttachmentApplied()
		core.LogDebug("attached %s '%s' to node '%s'", ev.Kind, ev.Path, ev.NodeName)
		a.bus.Fire(core.EventContext{Type: core.EVENT_CODE_ASSET_ATTACHED, Data: ev})
		return
	case res.Skipped():
		a.metrics.AttachmentSkipped()
		if errors.Is(res.Err, ErrNoSurface) {
			core.LogWith("node", ev.NodeName, "path", ev.Path).Warn("texture loaded before the node had a surface, skipping")
		}
	default:
		a.metrics.AttachmentFailed()
		core.LogWith("node", ev.NodeName, "path", ev.Path, "kind", ev.Kind).Warn("failed to attach asset", "err", res.Err)
	}
	a.bus.Fire(core.EventContext{Type: core.EVENT_CODE_ATTACHMENT_FAILED, Data: ev})
}
