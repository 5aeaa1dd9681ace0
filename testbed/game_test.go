package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/scenestream/engine"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/math"
	"github.com/spaghettifunk/scenestream/engine/resources"
	"github.com/spaghettifunk/scenestream/engine/scene"
)

func TestStatusLine(t *testing.T) {
	app, err := engine.NewApplicationConfig(nil)
	require.NoError(t, err)
	g := NewTestGame(app)
	g.Scene = scene.NewScene()
	g.Metrics = core.NewMetrics()

	box := scene.NewNode("Box", math.NewVec3Zero(), math.NewVec3Zero(), math.NewVec3One())
	box.BindMesh(&resources.Mesh{Name: "Cube"})
	g.Scene.Add(box)
	g.Scene.Add(scene.NewNode("Empty", math.NewVec3Zero(), math.NewVec3Zero(), math.NewVec3One()))
	g.Metrics.AttachmentApplied()

	line := g.statusLine()
	assert.Contains(t, line, "Build=none")
	assert.Contains(t, line, "Nodes=2 Bound=1 Applied=1")
	assert.Contains(t, line, "Meshes=[Cube]")

	require.NoError(t, g.Update(reportInterval/2))
	assert.Zero(t, g.State.(*gameState).reports)
	require.NoError(t, g.Update(reportInterval))
	assert.Equal(t, 1, g.State.(*gameState).reports)
}
