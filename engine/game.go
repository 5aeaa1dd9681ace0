package engine

import (
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/pipeline"
	"github.com/spaghettifunk/scenestream/engine/scene"
)

// Game is the application driven by the engine. Every hook is optional.
type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize runs.
	Scene   *scene.Scene
	Metrics *core.Metrics
	State   interface{}

	FnInitialize    Initialize
	FnUpdate        Update
	FnOnSceneLoaded OnSceneLoaded
	FnShutdown      Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type OnSceneLoaded func(run *pipeline.Run) error
type Shutdown func() error
