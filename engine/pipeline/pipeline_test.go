package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/scenestream/engine/assets"
	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/scene"
	"github.com/spaghettifunk/scenestream/engine/systems"
)

const boxManifest = `[{"name":"Box","position":[1,2,3],"rotation":[0,0,0],"scale":[1,1,1],"components":[{"type":"Mesh","relativePath":"box.mesh"}]}]`

func newPipeline(t *testing.T, source content.Source, locator content.Locator) (*Pipeline, *scene.Scene, *core.EventBus) {
	t.Helper()
	jobs, err := systems.NewJobSystem(2, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Shutdown() })

	bus := core.NewEventBus()
	metrics := core.NewMetrics()
	sc := scene.NewScene()
	return &Pipeline{
		Resolver: content.NewResolver(source, locator),
		Manifest: content.NewManifestFetcher(source, locator),
		Packages: assets.NewPackageLoader(source, locator, assets.DefaultLoaders(), jobs),
		Composer: scene.NewComposer(sc, scene.NewAttacher(scene.AttachSequential, bus, metrics), bus, metrics),
		Bus:      bus,
	}, sc, bus
}

func TestRunEndToEnd(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/src/box.mesh", []byte("o Box\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, "/src/Data.json", []byte(boxManifest), 0o644))
	_, err := assets.BuildPackage(fs, "/src", "/sa", "build42")
	require.NoError(t, err)

	p, sc, bus := newPipeline(t, content.NewRouter(fs, nil, nil), content.Locator{StreamingRoot: "/sa"})
	var completed atomic.Bool
	bus.Register(core.EVENT_CODE_PIPELINE_COMPLETED, t, func(ctx core.EventContext) bool {
		completed.Store(ctx.Data.(*core.PipelineEvent).Build == "build42")
		return true
	})

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content.BuildIdentity("build42"), run.Identity)
	assert.NotEmpty(t, run.ID)
	assert.True(t, completed.Load())

	results, err := run.Composition.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	nodes := sc.FindByName("Box")
	require.Len(t, nodes, 1)
	box := nodes[0]
	assert.Equal(t, math.NewVec3(1, 2, 3), box.Position())
	require.NotNil(t, box.Mesh())
	assert.Equal(t, "Box", box.Mesh().Name)
	assert.NotNil(t, box.Surface())

	select {
	case <-run.Composition.Released():
	case <-time.After(5 * time.Second):
		t.Fatal("package was never released")
	}
	assert.True(t, run.Package.Released())
}

func TestRunManifestNotFound(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/sa/ConfigurationData/AssetBundleConfig.json" {
			_, _ = w.Write([]byte(`{"buildName":"build42"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p, sc, _ := newPipeline(t, content.NewRouter(memfs.New(), srv.Client(), nil), content.Locator{StreamingRoot: srv.URL + "/sa"})
	run, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetchFailed)

	var stageErr *core.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, core.StageManifest, stageErr.Stage)
	assert.True(t, core.IsFatal(err))

	assert.Nil(t, run.Package)
	assert.Nil(t, run.Composition)
	assert.Zero(t, sc.Len())

	mu.Lock()
	defer mu.Unlock()
	for _, p := range paths {
		assert.False(t, strings.Contains(p, "AssetBundles"), "package was requested: %s", p)
	}
}

func TestRunIdentityUnresolved(t *testing.T) {
	for _, record := range []string{`{"buildName":""}`, `{}`} {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(record))
		}))

		p, sc, bus := newPipeline(t, content.NewRouter(memfs.New(), srv.Client(), nil), content.Locator{StreamingRoot: srv.URL})
		var failed atomic.Bool
		bus.Register(core.EVENT_CODE_PIPELINE_FAILED, t, func(ctx core.EventContext) bool {
			failed.Store(true)
			return true
		})

		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, core.ErrIdentityUnresolved)
		assert.Equal(t, int32(1), hits.Load(), "only the identity record is fetched")
		assert.Zero(t, sc.Len())
		assert.True(t, failed.Load())
		srv.Close()
	}
}

func TestRunPackageMissing(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/sa/ConfigurationData/AssetBundleConfig.json", []byte(`{"buildName":"b1"}`), 0o644))
	require.NoError(t, util.WriteFile(fs, "/sa/ConfigurationData/b1/Data.json", []byte(boxManifest), 0o644))

	p, sc, _ := newPipeline(t, content.NewRouter(fs, nil, nil), content.Locator{StreamingRoot: "/sa"})
	run, err := p.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
	assert.Len(t, run.Manifest, 1)
	assert.Zero(t, sc.Len(), "no partial scene without assets")
}
