package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Engine contains host loop settings.
type Engine struct {
	Name      string `toml:"name"`
	LogLevel  string `toml:"log_level"`
	Watch     bool   `toml:"watch"`
	TargetFPS int    `toml:"target_fps"`
}

// Content locates the streamed content.
type Content struct {
	StreamingAssetsRoot string `toml:"streaming_assets_root"`
	AppDataPath         string `toml:"app_data_path"`
	Platform            string `toml:"platform"`
	FetchTimeout        string `toml:"fetch_timeout"`
}

// S3 contains credentials for s3:// content roots.
type S3 struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Scene contains composition settings.
type Scene struct {
	Workers     int    `toml:"workers"`
	QueueSize   int    `toml:"queue_size"`
	AttachOrder string `toml:"attach_order"`
}

type Config struct {
	Engine  Engine  `toml:"engine"`
	Content Content `toml:"content"`
	S3      S3      `toml:"s3"`
	Scene   Scene   `toml:"scene"`
}

// Load parses the file at path over the defaults. A missing file yields the
// defaults. The second return value reports whether the file existed.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	exists := false
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			exists = true
			decoder := toml.NewDecoder(file)
			if err := decoder.Decode(&cfg); err != nil {
				return nil, false, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, false, fmt.Errorf("open config: %w", err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, exists, err
	}
	return &cfg, exists, nil
}

func (c *Config) normalize() {
	c.Content.StreamingAssetsRoot = strings.TrimSpace(c.Content.StreamingAssetsRoot)
	c.Content.AppDataPath = strings.TrimSpace(c.Content.AppDataPath)
	c.Content.Platform = strings.ToLower(strings.TrimSpace(c.Content.Platform))
	c.Scene.AttachOrder = strings.ToLower(strings.TrimSpace(c.Scene.AttachOrder))
	c.Engine.LogLevel = strings.ToLower(strings.TrimSpace(c.Engine.LogLevel))

	// Credentials from the environment win over the file.
	if v := os.Getenv("SCENESTREAM_S3_ACCESS_KEY"); v != "" {
		c.S3.AccessKey = v
	}
	if v := os.Getenv("SCENESTREAM_S3_SECRET_KEY"); v != "" {
		c.S3.SecretKey = v
	}
}

// FetchTimeout is the parsed fetch timeout. Zero means none.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Content.FetchTimeout))
	if err != nil {
		return 0
	}
	return d
}

// UsesS3 reports whether the content root lives in an object store.
func (c *Config) UsesS3() bool {
	return strings.HasPrefix(c.Content.StreamingAssetsRoot, "s3://")
}

// StreamingRoot returns the content root, made absolute when it is a local
// path.
func (c *Config) StreamingRoot() (string, error) {
	root := c.Content.StreamingAssetsRoot
	if strings.Contains(root, "://") {
		return root, nil
	}
	return filepath.Abs(root)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
