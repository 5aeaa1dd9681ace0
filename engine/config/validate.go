package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validateS3(); err != nil {
		return err
	}
	if err := c.validateScene(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("engine.log_level: unknown level %q", c.Engine.LogLevel)
	}
	if c.Engine.TargetFPS < 0 {
		return errors.New("engine.target_fps must be non-negative")
	}
	return nil
}

func (c *Config) validateContent() error {
	switch c.Content.Platform {
	case "", "standalone":
		if c.Content.StreamingAssetsRoot == "" {
			return errors.New("content.streaming_assets_root must be set")
		}
	case "android":
		if c.Content.AppDataPath == "" {
			return errors.New("content.app_data_path must be set on android")
		}
	default:
		return fmt.Errorf("content.platform: unknown platform %q", c.Content.Platform)
	}
	if t := strings.TrimSpace(c.Content.FetchTimeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("content.fetch_timeout: %w", err)
		}
		if d < 0 {
			return errors.New("content.fetch_timeout must be non-negative")
		}
	}
	return nil
}

func (c *Config) validateS3() error {
	if !c.UsesS3() {
		return nil
	}
	if strings.TrimSpace(c.S3.Endpoint) == "" {
		return errors.New("s3.endpoint must be set for an s3:// content root")
	}
	return nil
}

func (c *Config) validateScene() error {
	if c.Scene.Workers < 1 {
		return errors.New("scene.workers must be at least 1")
	}
	if c.Scene.QueueSize < 0 {
		return errors.New("scene.queue_size must be non-negative")
	}
	switch c.Scene.AttachOrder {
	case "", "sequential", "completion":
	default:
		return fmt.Errorf("scene.attach_order: unknown order %q", c.Scene.AttachOrder)
	}
	return nil
}
