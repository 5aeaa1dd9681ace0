package assets

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/resources"
	"github.com/spaghettifunk/scenestream/engine/systems"
)

const triangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

func writeSources(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(body), 0o644))
	}
}

func buildFixture(t *testing.T) (billy.Filesystem, *BuildReport) {
	t.Helper()
	fs := memfs.New()
	writeSources(t, fs, map[string]string{
		"/src/box.mesh":             triangleOBJ,
		"/src/Models/Crate.obj":     triangleOBJ,
		"/src/props/crate.obj":      triangleOBJ,
		"/src/materials/brick.mat":  `name = "brick"`,
		"/src/textures/broken.png":  "not an image",
		"/src/Data.json":            `[{"name":"Box"}]`,
		"/src/Box.cs":               "class Box {}",
		"/src/box.mesh.meta":        "guid: 1",
		"/src/Main.unity":           "%YAML",
	})
	report, err := BuildPackage(fs, "/src", "/sa", "build42")
	require.NoError(t, err)
	return fs, report
}

func openFixture(t *testing.T, jobs *systems.JobSystem) *Package {
	t.Helper()
	fs, _ := buildFixture(t)
	loader := NewPackageLoader(content.NewRouter(fs, nil, nil), content.Locator{StreamingRoot: "/sa"}, nil, jobs)
	pkg, err := loader.Load(context.Background(), "build42")
	require.NoError(t, err)
	return pkg
}

func TestDetermineAssetKind(t *testing.T) {
	assert.Equal(t, resources.AssetKindMesh, DetermineAssetKind("a/b/box.MESH"))
	assert.Equal(t, resources.AssetKindMesh, DetermineAssetKind("box.obj"))
	assert.Equal(t, resources.AssetKindTexture, DetermineAssetKind("t.webp"))
	assert.Equal(t, resources.AssetKindTexture, DetermineAssetKind("t.JPG"))
	assert.Equal(t, resources.AssetKindMaterial, DetermineAssetKind("m.toml"))
	assert.Equal(t, resources.AssetKindUnknown, DetermineAssetKind("sound.wav"))
}

func TestBuildPackage(t *testing.T) {
	fs, report := buildFixture(t)

	sort.Strings(report.Skipped)
	assert.Equal(t, []string{"Box.cs", "Main.unity", "box.mesh.meta"}, report.Skipped)
	assert.NotContains(t, report.Assets, "Data.json")
	assert.Contains(t, report.Assets, "box.mesh")
	assert.Equal(t, "/sa/AssetBundles/build42", report.PackagePath)
	assert.Positive(t, report.Size)
	assert.Contains(t, report.String(), "/sa/AssetBundles/build42")

	record, err := util.ReadFile(fs, "/sa/ConfigurationData/AssetBundleConfig.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"buildName":"build42"}`, string(record))

	manifest, err := util.ReadFile(fs, "/sa/ConfigurationData/build42/Data.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Box"}]`, string(manifest))
}

func TestBuildPackageFailures(t *testing.T) {
	fs := memfs.New()
	_, err := BuildPackage(fs, "/src", "/sa", "")
	assert.Error(t, err)

	_, err = BuildPackage(fs, "/missing", "/sa", "b1")
	assert.Error(t, err)

	_, err = BuildPackage(fs, "/src", "/sa", "../escape")
	assert.Error(t, err)

	_, err = BuildPackage(fs, "/src", "/sa", "..")
	assert.Error(t, err)
}

func TestPackageLoadAsset(t *testing.T) {
	jobs, err := systems.NewJobSystem(2, 8)
	require.NoError(t, err)
	defer jobs.Shutdown()
	pkg := openFixture(t, jobs)

	asset, err := pkg.LoadAsset(context.Background(), "box.mesh", resources.AssetKindMesh).Wait(context.Background())
	require.NoError(t, err)
	mesh, ok := asset.Mesh()
	require.True(t, ok)
	assert.Len(t, mesh.Indices, 3)

	mat, err := pkg.LoadAssetSync(context.Background(), "materials/brick.mat", resources.AssetKindMaterial)
	require.NoError(t, err)
	assert.Equal(t, resources.AssetKindMaterial, mat.Kind)
	assert.Len(t, pkg.Entries(), 5)
	assert.Equal(t, content.BuildIdentity("build42"), pkg.ID())
}

func TestPackageLookupFallbacks(t *testing.T) {
	pkg := openFixture(t, nil)
	ctx := context.Background()

	// case-insensitive path
	_, err := pkg.LoadAssetSync(ctx, "BOX.MESH", resources.AssetKindMesh)
	require.NoError(t, err)

	// unique base name
	_, err = pkg.LoadAssetSync(ctx, "brick.mat", resources.AssetKindMaterial)
	require.NoError(t, err)

	// ambiguous base name
	_, err = pkg.LoadAssetSync(ctx, "crate.obj", resources.AssetKindMesh)
	assert.ErrorIs(t, err, core.ErrAssetMissing)

	_, err = pkg.LoadAssetSync(ctx, "props/crate.obj", resources.AssetKindMesh)
	require.NoError(t, err)
}

func TestPackageLoadErrors(t *testing.T) {
	pkg := openFixture(t, nil)
	ctx := context.Background()

	_, err := pkg.LoadAssetSync(ctx, "nope.mesh", resources.AssetKindMesh)
	assert.ErrorIs(t, err, core.ErrAssetMissing)

	_, err = pkg.LoadAssetSync(ctx, "box.mesh", resources.AssetKindTexture)
	assert.ErrorIs(t, err, core.ErrAssetTypeMismatch)

	_, err = pkg.LoadAssetSync(ctx, "textures/broken.png", resources.AssetKindTexture)
	assert.ErrorIs(t, err, core.ErrAssetTypeMismatch)
	assert.False(t, core.IsFatal(err))
}

func TestPackageUnloadOnce(t *testing.T) {
	pkg := openFixture(t, nil)
	ctx := context.Background()

	asset, err := pkg.LoadAssetSync(ctx, "box.mesh", resources.AssetKindMesh)
	require.NoError(t, err)

	require.NoError(t, pkg.Unload(false))
	assert.True(t, pkg.Released())
	mesh, _ := asset.Mesh()
	assert.NotEmpty(t, mesh.Vertices, "assets outlive the package without a forced unload")

	assert.ErrorIs(t, pkg.Unload(false), core.ErrPackageReleased)

	_, err = pkg.LoadAssetSync(ctx, "box.mesh", resources.AssetKindMesh)
	assert.ErrorIs(t, err, core.ErrPackageReleased)
}

func TestPackageUnloadAllObjects(t *testing.T) {
	pkg := openFixture(t, nil)
	asset, err := pkg.LoadAssetSync(context.Background(), "box.mesh", resources.AssetKindMesh)
	require.NoError(t, err)

	require.NoError(t, pkg.Unload(true))
	mesh, _ := asset.Mesh()
	assert.Empty(t, mesh.Vertices)
}

func TestPackageLoaderNotFoundAndCorrupt(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/sa/AssetBundles/junk", []byte("not a zip"), 0o644))
	loader := NewPackageLoader(content.NewRouter(fs, nil, nil), content.Locator{StreamingRoot: "/sa"}, nil, nil)

	_, err := loader.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrPackageNotFound)

	_, err = loader.Load(context.Background(), "junk")
	assert.ErrorIs(t, err, core.ErrPackageCorrupt)
}

func TestPackageLoaderInsideArchive(t *testing.T) {
	fs, report := buildFixture(t)
	pkgBytes, err := util.ReadFile(fs, report.PackagePath)
	require.NoError(t, err)

	// Re-pack the built package inside an application archive.
	apkFS := memfs.New()
	writeSources(t, apkFS, map[string]string{"/apk/assets/AssetBundles/build42": string(pkgBytes)})
	_, err = BuildPackage(apkFS, "/apk", "/out", "app")
	require.NoError(t, err)

	loader := NewPackageLoader(
		content.NewRouter(apkFS, nil, nil),
		content.Locator{AppDataPath: "/out/AssetBundles/app", Platform: content.PlatformAndroid},
		nil, nil,
	)
	pkg, err := loader.Load(context.Background(), "build42")
	require.NoError(t, err)
	_, err = pkg.LoadAssetSync(context.Background(), "box.mesh", resources.AssetKindMesh)
	require.NoError(t, err)
}

func TestWatcherFiresOnRecordChange(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "AssetBundleConfig.json")
	require.NoError(t, os.WriteFile(record, []byte(`{"buildName":"a"}`), 0o644))

	bus := core.NewEventBus()
	changed := make(chan string, 8)
	bus.Register(core.EVENT_CODE_BUILD_CHANGED, t, func(ctx core.EventContext) bool {
		changed <- ctx.Data.(string)
		return true
	})

	w, err := NewWatcher(record, bus)
	require.NoError(t, err)
	require.NoError(t, w.Initialize())
	defer w.Shutdown()

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))

	data, err := json.Marshal(map[string]string{"buildName": "b"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(record, data, 0o644))

	select {
	case got := <-changed:
		assert.Equal(t, record, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no build change event")
	}

	require.NoError(t, w.Shutdown())
	require.NoError(t, w.Shutdown())
}
