package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/resources"
	"github.com/spaghettifunk/scenestream/engine/systems"
)

// Package is an opened asset package. Entries are decompressed on demand, so
// loads must not be issued once the package has been unloaded.
type Package struct {
	id      content.BuildIdentity
	size    int64
	reader  *zip.Reader
	entries map[string]*zip.File
	folded  map[string][]*zip.File
	bases   map[string][]*zip.File

	loaders Loaders
	jobs    *systems.JobSystem

	mu       sync.RWMutex
	released bool

	loadedMu sync.Mutex
	loaded   []*resources.Asset
}

// OpenPackage reads a package from memory. Corrupt containers are reported as
// core.ErrPackageCorrupt.
func OpenPackage(id content.BuildIdentity, data []byte, loaders Loaders, jobs *systems.JobSystem) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrPackageCorrupt, id, err)
	}
	if loaders == nil {
		loaders = DefaultLoaders()
	}
	p := &Package{
		id:      id,
		size:    int64(len(data)),
		reader:  zr,
		entries: make(map[string]*zip.File, len(zr.File)),
		folded:  make(map[string][]*zip.File),
		bases:   make(map[string][]*zip.File),
		loaders: loaders,
		jobs:    jobs,
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := normalizeEntry(f.Name)
		p.entries[name] = f
		lower := strings.ToLower(name)
		p.folded[lower] = append(p.folded[lower], f)
		base := path.Base(lower)
		p.bases[base] = append(p.bases[base], f)
	}
	return p, nil
}

func normalizeEntry(name string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
}

func (p *Package) ID() content.BuildIdentity { return p.id }

// Size is the encoded size of the package in bytes.
func (p *Package) Size() int64 { return p.size }

// Entries returns the normalized path of every asset in the package.
func (p *Package) Entries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.entries))
	for name := range p.entries {
		out = append(out, name)
	}
	return out
}

// lookup finds an entry by exact path, then case-insensitive path, then by a
// case-insensitive base name that matches exactly one entry.
func (p *Package) lookup(name string) (*zip.File, bool) {
	key := normalizeEntry(name)
	if f, ok := p.entries[key]; ok {
		return f, true
	}
	lower := strings.ToLower(key)
	if fs := p.folded[lower]; len(fs) == 1 {
		return fs[0], true
	}
	if fs := p.bases[path.Base(lower)]; len(fs) == 1 {
		return fs[0], true
	}
	return nil, false
}

// LoadAsset reads and decodes an entry on the job system.
func (p *Package) LoadAsset(ctx context.Context, name string, kind resources.AssetKind) *systems.Future[*resources.Asset] {
	if p.jobs == nil {
		asset, err := p.LoadAssetSync(ctx, name, kind)
		return systems.Resolved(asset, err)
	}
	return systems.Go(ctx, p.jobs, "load "+name, func(ctx context.Context) (*resources.Asset, error) {
		return p.LoadAssetSync(ctx, name, kind)
	})
}

// LoadAssetSync reads and decodes an entry on the calling goroutine.
func (p *Package) LoadAssetSync(ctx context.Context, name string, kind resources.AssetKind) (*resources.Asset, error) {
	// Hold the read lock for the whole load so Unload waits for readers.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.released {
		return nil, fmt.Errorf("load %q: %w", name, core.ErrPackageReleased)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, ok := p.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in package %s", core.ErrAssetMissing, name, p.id)
	}
	if entryKind := DetermineAssetKind(f.Name); entryKind != kind {
		return nil, fmt.Errorf("%w: %q is a %s, requested %s", core.ErrAssetTypeMismatch, name, entryKind, kind)
	}
	loader, ok := p.loaders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no loader registered for %s", core.ErrAssetTypeMismatch, kind)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", core.ErrPackageCorrupt, f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", core.ErrPackageCorrupt, f.Name, err)
	}

	asset, err := loader.Load(f.Name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %q as %s: %w", core.ErrAssetTypeMismatch, f.Name, kind, err)
	}
	p.track(asset)
	return asset, nil
}

func (p *Package) track(asset *resources.Asset) {
	p.loadedMu.Lock()
	p.loaded = append(p.loaded, asset)
	p.loadedMu.Unlock()
}

// Unload releases the package. With unloadAllLoadedObjects set, every asset
// decoded from it is unloaded too. A package can only be released once.
func (p *Package) Unload(unloadAllLoadedObjects bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return core.ErrPackageReleased
	}
	p.released = true

	var errs []error
	p.loadedMu.Lock()
	defer p.loadedMu.Unlock()
	if unloadAllLoadedObjects {
		for _, asset := range p.loaded {
			if loader, ok := p.loaders[asset.Kind]; ok {
				if err := loader.Unload(asset); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	p.loaded = nil
	p.reader = nil
	p.entries = nil
	p.folded = nil
	p.bases = nil
	core.LogDebug("package '%s' released (unload objects: %t)", p.id, unloadAllLoadedObjects)
	return errors.Join(errs...)
}

// Released reports whether Unload has been called.
func (p *Package) Released() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.released
}

// PackageLoader opens the package of a build.
type PackageLoader struct {
	source  content.Source
	locator content.Locator
	loaders Loaders
	jobs    *systems.JobSystem
}

func NewPackageLoader(source content.Source, locator content.Locator, loaders Loaders, jobs *systems.JobSystem) *PackageLoader {
	return &PackageLoader{source: source, locator: locator, loaders: loaders, jobs: jobs}
}

func (pl *PackageLoader) Load(ctx context.Context, id content.BuildIdentity) (*Package, error) {
	uri := pl.locator.PackageURI(id)
	data, err := pl.source.Fetch(ctx, uri)
	if err != nil {
		core.LogError("failed to open package '%s' at '%s': %s", id, uri, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", core.ErrPackageNotFound, err)
	}
	pkg, err := OpenPackage(id, data, pl.loaders, pl.jobs)
	if err != nil {
		core.LogError("failed to open package '%s' at '%s': %s", id, uri, err.Error())
		return nil, err
	}
	core.LogInfo("package '%s' opened (%d entries, %d bytes)", id, len(pkg.entries), pkg.size)
	return pkg, nil
}
