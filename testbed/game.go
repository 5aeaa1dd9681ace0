package testbed

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/scenestream/engine"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/pipeline"
)

// reportInterval is how often, in seconds, the viewer prints a status line.
const reportInterval = 5.0

// TestGame prints what the engine streamed into the scene.
type TestGame struct {
	*engine.Game
}

type gameState struct {
	build       string
	runID       string
	sinceReport float64
	reports     int
}

func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State:             &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnSceneLoaded = tg.OnSceneLoaded
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("%s viewer initialized", g.ApplicationConfig.Name)
	return nil
}

func (g *TestGame) OnSceneLoaded(run *pipeline.Run) error {
	state := g.State.(*gameState)
	state.build = string(run.Identity)
	state.runID = run.ID
	state.sinceReport = 0

	for _, n := range run.Composition.Nodes() {
		pos := n.Position()
		t := n.Transform()
		rot := t.EulerDegrees()
		core.LogInfo("node %d '%s' Pos=[%7.3f %7.3f %7.3f] Rot=[%7.3f %7.3f %7.3f]",
			n.ID, n.Name, pos.X, pos.Y, pos.Z, rot.X, rot.Y, rot.Z)
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.sinceReport += deltaTime
	if state.sinceReport < reportInterval {
		return nil
	}
	state.sinceReport = 0
	state.reports++

	core.LogInfo("%s", g.statusLine())
	return nil
}

func (g *TestGame) statusLine() string {
	state := g.State.(*gameState)
	fps, frameTime := g.Metrics.Frame()
	stats := g.Metrics.Attachments()

	bound := 0
	var meshes []string
	for _, n := range g.Scene.Nodes() {
		if !n.HasBindings() {
			continue
		}
		bound++
		if m := n.Mesh(); m != nil {
			meshes = append(meshes, m.Name)
		}
	}

	return fmt.Sprintf(
		"FPS: %5.1f(%4.1fms) Build=%s Nodes=%d Bound=%d Applied=%d Skipped=%d Failed=%d Meshes=[%s]",
		fps,
		frameTime,
		map[bool]string{true: state.build, false: "none"}[state.build != ""],
		g.Scene.Len(),
		bound,
		stats.Applied,
		stats.Skipped,
		stats.Failed,
		strings.Join(meshes, ", "),
	)
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogDebug("viewer for run %s stopped after %d reports", state.runID, state.reports)
	return nil
}
