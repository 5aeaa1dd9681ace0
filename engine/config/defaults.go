package config

// Default returns the configuration used when no file overrides it. No
// fetch timeout is set, fetches wait until the transport gives up.
func Default() Config {
	return Config{
		Engine: Engine{
			Name:      "scenestream",
			LogLevel:  "info",
			TargetFPS: 60,
		},
		Content: Content{
			StreamingAssetsRoot: "StreamingAssets",
			Platform:            "standalone",
		},
		S3: S3{
			UseSSL: true,
		},
		Scene: Scene{
			Workers:     4,
			QueueSize:   64,
			AttachOrder: "sequential",
		},
	}
}
