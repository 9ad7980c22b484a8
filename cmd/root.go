// Package cmd is the vision command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/nvr-ai/go-vision/config"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vision",
	Short: "Object detection and semantic segmentation on ONNX Runtime",
	Long: `vision runs YOLOv5 detection and UNet segmentation models through ONNX Runtime.

Examples:
  vision serve                         # Start the HTTP API
  vision detect ./frames               # Detect objects in every image of a directory
  vision segment photo.jpg -o out.jpg  # Write the segmentation overlay
  vision stream 0 --resolution 720p    # Detect on a camera feed`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logger.Init(cfg.Log.Mode, cfg.Log.Level); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vision %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
