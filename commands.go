package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/scenestream/engine"
	"github.com/spaghettifunk/scenestream/engine/assets"
	"github.com/spaghettifunk/scenestream/engine/config"
	"github.com/spaghettifunk/scenestream/testbed"
)

const defaultConfigPath = "scenestream.toml"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "scenestream",
		Short:         "Stream a content build into a scene",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), configFlag)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfigPath, "Configuration file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Load the active build and run the host loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), configFlag)
		},
	})
	rootCmd.AddCommand(newPackCommand())
	rootCmd.AddCommand(newConfigCommand(&configFlag))
	return rootCmd
}

func runEngine(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := config.Load(strings.TrimSpace(configPath))
	if err != nil {
		return err
	}
	app, err := engine.NewApplicationConfig(cfg)
	if err != nil {
		return err
	}

	tb := testbed.NewTestGame(app)
	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}

	// capture sigterm and other system calls here
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func newPackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <asset-dir> <streaming-root> <build-name>",
		Short: "Package an asset directory as a content build",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			report, err := assets.BuildPackage(osfs.New("/"), src, root, args[2])
			if err != nil {
				return fmt.Errorf("package build: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.String())
			fmt.Fprintf(out, "Packed %d assets, skipped %d files\n", len(report.Assets), len(report.Skipped))
			return nil
		},
	}
}

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(*configFlag)
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, exists, err := config.Load(strings.TrimSpace(*configFlag))
			if err != nil {
				return err
			}
			if !exists {
				fmt.Fprintf(cmd.OutOrStdout(), "No configuration at %s, defaults are valid\n", *configFlag)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", *configFlag)
			return nil
		},
	}

	configCmd.AddCommand(initCmd, validateCmd)
	return configCmd
}
