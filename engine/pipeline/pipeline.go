package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spaghettifunk/scenestream/engine/assets"
	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/scene"
)

// Resolver names the active build.
type Resolver interface {
	Resolve(ctx context.Context) (content.BuildIdentity, error)
}

// ManifestFetcher loads the manifest of a build.
type ManifestFetcher interface {
	Fetch(ctx context.Context, id content.BuildIdentity) (content.SceneManifest, error)
}

// PackageLoader opens the asset package of a build.
type PackageLoader interface {
	Load(ctx context.Context, id content.BuildIdentity) (*assets.Package, error)
}

// Composer turns a manifest into scene nodes.
type Composer interface {
	Compose(ctx context.Context, manifest content.SceneManifest, pkg scene.Package) (*scene.Composition, error)
}

// Pipeline chains the stages that bring a build into the scene. Stages run
// strictly one after the other on the caller's goroutine.
type Pipeline struct {
	Resolver Resolver
	Manifest ManifestFetcher
	Packages PackageLoader
	Composer Composer
	Bus      *core.EventBus
}

// Run is the state owned by a single pipeline execution.
type Run struct {
	ID          string
	Identity    content.BuildIdentity
	Manifest    content.SceneManifest
	Package     *assets.Package
	Composition *scene.Composition
	Started     time.Time
	Err         error
}

// Run executes every stage. A fatal error stops the pipeline and is returned
// as a *core.StageError; the returned Run describes how far it got.
func (p *Pipeline) Run(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	ctx = core.WithRunID(ctx, run.ID)
	log := core.LogWith("run", run.ID)
	p.Bus.Fire(core.EventContext{Type: core.EVENT_CODE_PIPELINE_STARTED, Data: &core.PipelineEvent{RunID: run.ID}})

	fail := func(stage core.Stage, err error) (*Run, error) {
		run.Err = &core.StageError{Stage: stage, Err: err}
		log.Error("scene pipeline stopped", "stage", stage, "err", err)
		p.Bus.Fire(core.EventContext{
			Type: core.EVENT_CODE_PIPELINE_FAILED,
			Data: &core.PipelineEvent{RunID: run.ID, Build: string(run.Identity), Err: run.Err},
		})
		return run, run.Err
	}

	id, err := p.Resolver.Resolve(ctx)
	if err == nil && id == "" {
		err = core.ErrIdentityUnresolved
	}
	if err != nil {
		return fail(core.StageResolve, err)
	}
	run.Identity = id
	log = log.With("build", string(id))
	log.Info("build identity resolved")

	manifest, err := p.Manifest.Fetch(ctx, id)
	if err != nil {
		return fail(core.StageManifest, err)
	}
	run.Manifest = manifest
	log.Info("manifest fetched", "nodes", len(manifest), "components", manifest.ComponentCount())

	pkg, err := p.Packages.Load(ctx, id)
	if err != nil {
		return fail(core.StagePackage, err)
	}
	run.Package = pkg

	comp, err := p.Composer.Compose(ctx, manifest, pkg)
	run.Composition = comp
	if err != nil {
		if comp == nil {
			// nothing took ownership of the package
			if uerr := pkg.Unload(false); uerr != nil && !errors.Is(uerr, core.ErrPackageReleased) {
				log.Warn("failed to release package", "err", uerr)
			}
		}
		return fail(core.StageCompose, err)
	}
	log.Info("scene composed", "nodes", len(comp.Nodes()), "attachments", comp.Dispatched(), "elapsed", time.Since(run.Started))
	p.Bus.Fire(core.EventContext{
		Type: core.EVENT_CODE_PIPELINE_COMPLETED,
		Data: &core.PipelineEvent{RunID: run.ID, Build: string(id)},
	})
	return run, nil
}
