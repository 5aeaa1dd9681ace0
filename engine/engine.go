package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/minio/minio-go/v7"

	"github.com/spaghettifunk/scenestream/engine/assets"
	"github.com/spaghettifunk/scenestream/engine/containers"
	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/pipeline"
	"github.com/spaghettifunk/scenestream/engine/scene"
	"github.com/spaghettifunk/scenestream/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// failureHistory is how many attachment failures are kept for inspection.
const failureHistory = 32

type Engine struct {
	currentStage Stage
	gameInstance *Game
	app          *ApplicationConfig
	isRunning    atomic.Bool
	clock        *core.Clock
	metrics      *core.Metrics
	bus          *core.EventBus
	lastTime     float64

	fs       billy.Filesystem
	locator  content.Locator
	jobs     *systems.JobSystem
	scene    *scene.Scene
	pipeline *pipeline.Pipeline
	watcher  *assets.Watcher
	current  *pipeline.Run
	// cancels the attachments still in flight for the current run
	cancelRun context.CancelFunc

	failuresMu sync.Mutex
	activeRun  string
	failures   *containers.RingQueue[core.AttachmentEvent]

	// wakes the host loop on quit and reload requests
	wake   chan struct{}
	reload atomic.Bool
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	failures, err := containers.NewRingQueue[core.AttachmentEvent](failureHistory)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		app:          g.ApplicationConfig,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		bus:          core.NewEventBus(),
		fs:           osfs.New("/"),
		scene:        scene.NewScene(),
		failures:     failures,
		wake:         make(chan struct{}, 1),
	}
	e.isRunning.Store(true)
	g.Scene = e.scene
	g.Metrics = e.metrics
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.SetLogLevel(e.app.LogLevel)
	settings := e.app.Settings

	root, err := settings.StreamingRoot()
	if err != nil {
		return err
	}
	appData := settings.Content.AppDataPath
	if appData != "" {
		if appData, err = filepath.Abs(appData); err != nil {
			return err
		}
	}
	e.locator = content.Locator{StreamingRoot: root, AppDataPath: appData, Platform: e.app.Platform}

	var s3 *minio.Client
	if settings.UsesS3() {
		s3, err = content.NewS3Client(settings.S3.Endpoint, settings.S3.AccessKey, settings.S3.SecretKey, settings.S3.Region, settings.S3.UseSSL)
		if err != nil {
			return fmt.Errorf("create s3 client: %w", err)
		}
	}
	router := content.NewRouter(e.fs, &http.Client{}, s3)
	router.Timeout = settings.FetchTimeout()

	e.jobs, err = systems.NewJobSystem(settings.Scene.Workers, settings.Scene.QueueSize)
	if err != nil {
		return err
	}

	attacher := scene.NewAttacher(e.app.AttachOrder, e.bus, e.metrics)
	e.pipeline = &pipeline.Pipeline{
		Resolver: content.NewResolver(router, e.locator),
		Manifest: content.NewManifestFetcher(router, e.locator),
		Packages: assets.NewPackageLoader(router, e.locator, assets.DefaultLoaders(), e.jobs),
		Composer: scene.NewComposer(e.scene, attacher, e.bus, e.metrics),
		Bus:      e.bus,
	}

	// register some events
	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_BUILD_CHANGED, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_ATTACHMENT_FAILED, e, e.onAttachmentFailed)
	e.bus.Register(core.EVENT_CODE_PIPELINE_STARTED, e, e.onPipelineStarted)

	if e.app.Watch {
		if !e.locator.IsLocal() {
			core.LogWarn("watch is only supported for local content roots, '%s' is not watched", e.locator.Root())
		} else {
			w, err := assets.NewWatcher(strings.TrimPrefix(e.locator.IdentityURI(), "file://"), e.bus)
			if err != nil {
				return err
			}
			if err := w.Initialize(); err != nil {
				return err
			}
			e.watcher = w
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized, content root '%s'", e.app.Name, e.locator.Root())
	return nil
}

// Run loads the active build into the scene and drives the game until ctx is
// done or a quit event arrives. With a target of zero frames per second the
// scene is loaded once and Run returns after every attachment settled.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Seconds()

	if e.app.TargetFPS <= 0 {
		if err := e.loadScene(ctx); err != nil {
			return err
		}
		return e.settle(ctx)
	}

	// A failed load leaves the host running so a later build can be picked up.
	if err := e.loadScene(ctx); err != nil && !core.IsFatal(err) {
		return err
	}

	ticker := time.NewTicker(time.Second / time.Duration(e.app.TargetFPS))
	defer ticker.Stop()

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			e.isRunning.Store(false)
		case <-e.wake:
			if e.reload.Swap(false) {
				if err := e.loadScene(ctx); err != nil && !core.IsFatal(err) {
					return err
				}
			}
		case <-ticker.C:
			if err := e.frame(); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				return err
			}
		}
	}
	return nil
}

func (e *Engine) frame() error {
	frameStart := time.Now()

	// Update clock and get delta time.
	e.clock.Update()
	currentTime := e.clock.Seconds()
	delta := currentTime - e.lastTime

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return err
		}
	}

	e.metrics.Update(time.Since(frameStart).Seconds())
	e.lastTime = currentTime
	return nil
}

// loadScene runs the pipeline. Nodes of an earlier build are dropped first and
// its pending attachments are cancelled.
func (e *Engine) loadScene(ctx context.Context) error {
	if e.cancelRun != nil {
		e.cancelRun()
	}
	if e.current != nil {
		e.scene.Clear()
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelRun = cancel
	run, err := e.pipeline.Run(runCtx)
	e.current = run
	if err != nil {
		return err
	}
	if e.gameInstance.FnOnSceneLoaded != nil {
		return e.gameInstance.FnOnSceneLoaded(run)
	}
	return nil
}

func (e *Engine) settle(ctx context.Context) error {
	comp := e.current.Composition
	if _, err := comp.Wait(ctx); err != nil {
		return err
	}
	select {
	case <-comp.Released():
	case <-ctx.Done():
		return ctx.Err()
	}
	stats := e.metrics.Attachments()
	core.LogInfo("scene settled: %d nodes, %d attachments (%d applied, %d skipped, %d failed)",
		stats.Nodes, stats.Dispatched, stats.Applied, stats.Skipped, stats.Failed)
	if err := comp.ReleaseErr(); err != nil {
		core.LogWarn("failed to release package: %s", err)
	}
	return nil
}

// Current is the most recent pipeline run, nil before the first one.
func (e *Engine) Current() *pipeline.Run {
	return e.current
}

func (e *Engine) Bus() *core.EventBus {
	return e.bus
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)
	if e.cancelRun != nil {
		e.cancelRun()
	}

	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Shutdown())
	}
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.jobs != nil {
		errs = append(errs, e.jobs.Shutdown())
	}
	e.bus.Shutdown()
	return errors.Join(errs...)
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
	case core.EVENT_CODE_BUILD_CHANGED:
		e.reload.Store(true)
	default:
		return false
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return false
}

func (e *Engine) onAttachmentFailed(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AttachmentEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	e.failuresMu.Lock()
	defer e.failuresMu.Unlock()
	if ae.RunID != e.activeRun {
		// outcome of a run that was replaced by a reload
		return false
	}
	core.LogDebug("attachment of '%s' to node '%s' did not apply: %s", ae.Path, ae.NodeName, ae.Err)
	e.failures.Push(*ae)
	return false
}

// onPipelineStarted starts a fresh failure history for the new run.
func (e *Engine) onPipelineStarted(context core.EventContext) bool {
	pe, ok := context.Data.(*core.PipelineEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	e.failuresMu.Lock()
	defer e.failuresMu.Unlock()
	e.activeRun = pe.RunID
	for !e.failures.IsEmpty() {
		_, _ = e.failures.Dequeue()
	}
	return false
}

// RecentFailures returns the latest skipped or failed attachments, oldest
// first.
func (e *Engine) RecentFailures() []core.AttachmentEvent {
	e.failuresMu.Lock()
	defer e.failuresMu.Unlock()
	return e.failures.Items()
}
