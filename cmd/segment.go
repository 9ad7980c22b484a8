package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-vision/images"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var segmentOutput string

var segmentCmd = &cobra.Command{
	Use:   "segment <image>",
	Short: "Overlay the semantic segmentation of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "read %s", args[0])
		}
		frame, err := images.DecodeFrame(data, images.ChannelOrderBGR)
		if err != nil {
			return err
		}

		rt, err := newApp(cfg, taskSet{segmentation: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.pipeline.Segment(cmd.Context(), frame)
		if err != nil {
			return err
		}

		out := segmentOutput
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_segmented.jpg"
		}
		encoded, err := images.Encode(res.Frame, formatFor(out))
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, encoded, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", out)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", out, strings.Join(res.Classes, ", "))
		return nil
	},
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentOutput, "output", "o", "", "output file (default <image>_segmented.jpg)")
}

// formatFor picks the encoder from the output file extension.
func formatFor(path string) images.ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return images.FormatPNG
	case ".bmp":
		return images.FormatBMP
	default:
		return images.FormatJPEG
	}
}
