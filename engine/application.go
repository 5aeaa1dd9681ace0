package engine

import (
	"fmt"

	"github.com/spaghettifunk/scenestream/engine/config"
	"github.com/spaghettifunk/scenestream/engine/content"
	"github.com/spaghettifunk/scenestream/engine/core"
	"github.com/spaghettifunk/scenestream/engine/scene"
)

type ApplicationConfig struct {
	// The application name used in diagnostics.
	Name     string
	LogLevel core.LogLevel
	// Frames per second of the host loop. Zero loads the scene once and returns.
	TargetFPS int
	// Reload the scene when the build identity record changes.
	Watch       bool
	Platform    content.Platform
	AttachOrder scene.AttachOrder
	Settings    *config.Config
}

// NewApplicationConfig validates the parts of a loaded configuration the host
// needs in typed form.
func NewApplicationConfig(cfg *config.Config) (*ApplicationConfig, error) {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	level, ok := core.ParseLogLevel(cfg.Engine.LogLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.Engine.LogLevel)
	}
	platform, err := content.ParsePlatform(cfg.Content.Platform)
	if err != nil {
		return nil, err
	}
	order, err := scene.ParseAttachOrder(cfg.Scene.AttachOrder)
	if err != nil {
		return nil, err
	}
	return &ApplicationConfig{
		Name:        cfg.Engine.Name,
		LogLevel:    level,
		TargetFPS:   cfg.Engine.TargetFPS,
		Watch:       cfg.Engine.Watch,
		Platform:    platform,
		AttachOrder: order,
		Settings:    cfg,
	}, nil
}
