package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, Default(), *cfg)
	assert.Zero(t, cfg.FetchTimeout())
}

func TestLoadCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenestream.toml")
	body := `
[engine]
log_level = "DEBUG"
watch = true

[content]
streaming_assets_root = "s3://bundles"
fetch_timeout = "15s"

[s3]
endpoint = "localhost:9000"
access_key = "file-key"
use_ssl = false

[scene]
workers = 8
attach_order = "Completion"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("SCENESTREAM_S3_SECRET_KEY", "env-secret")

	cfg, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "debug", cfg.Engine.LogLevel)
	assert.True(t, cfg.Engine.Watch)
	assert.True(t, cfg.UsesS3())
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
	assert.Equal(t, "file-key", cfg.S3.AccessKey)
	assert.Equal(t, "env-secret", cfg.S3.SecretKey)
	assert.False(t, cfg.S3.UseSSL)
	assert.Equal(t, 8, cfg.Scene.Workers)
	assert.Equal(t, 64, cfg.Scene.QueueSize, "unset keys keep their defaults")
	assert.Equal(t, "completion", cfg.Scene.AttachOrder)

	root, err := cfg.StreamingRoot()
	require.NoError(t, err)
	assert.Equal(t, "s3://bundles", root)
}

func TestLoadRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scene\nworkers = 1"), 0o644))
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"workers":       func(c *Config) { c.Scene.Workers = 0 },
		"queue":         func(c *Config) { c.Scene.QueueSize = -1 },
		"attach order":  func(c *Config) { c.Scene.AttachOrder = "random" },
		"platform":      func(c *Config) { c.Content.Platform = "ps5" },
		"android path":  func(c *Config) { c.Content.Platform = "android" },
		"timeout":       func(c *Config) { c.Content.FetchTimeout = "soon" },
		"log level":     func(c *Config) { c.Engine.LogLevel = "loud" },
		"s3 endpoint":   func(c *Config) { c.Content.StreamingAssetsRoot = "s3://bundles" },
		"empty root":    func(c *Config) { c.Content.StreamingAssetsRoot = "" },
		"negative fps":  func(c *Config) { c.Engine.TargetFPS = -1 },
		"negative wait": func(c *Config) { c.Content.FetchTimeout = "-1s" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scenestream.toml")
	require.NoError(t, CreateSample(path))

	cfg, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "sequential", cfg.Scene.AttachOrder)
}
