package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/pipeline"
	"github.com/nvr-ai/go-vision/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var annotateDir string

// detectResult is one line of detect output.
type detectResult struct {
	Path       string               `json:"path"`
	Frame      int                  `json:"frame"`
	Detections []pipeline.Detection `json:"detections"`
	Error      string               `json:"error,omitempty"`
}

var detectCmd = &cobra.Command{
	Use:   "detect <image|directory>",
	Short: "Detect objects in an image or a directory of images",
	Long: `Detect objects and print one JSON line per image, in frame order.

Files in a directory are ordered by the trailing number of their name, so
frame dumps such as frame-1.jpg ... frame-120.jpg are reported in sequence.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := util.LoadImageFiles(args[0])
		if err != nil {
			return err
		}

		rt, err := newApp(cfg, taskSet{detection: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		if annotateDir != "" {
			if err := os.MkdirAll(annotateDir, 0o755); err != nil {
				return errors.Wrapf(err, "create %s", annotateDir)
			}
		}

		results := detectFiles(cmd.Context(), rt, files)

		enc := json.NewEncoder(cmd.OutOrStdout())
		failed := 0
		for _, res := range results {
			if res.Error != "" {
				failed++
			}
			if err := enc.Encode(res); err != nil {
				return errors.Wrap(err, "write result")
			}
		}

		if failed > 0 {
			return errors.Errorf("%d of %d images failed", failed, len(files))
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVarP(&annotateDir, "annotate", "a", "", "write annotated JPEGs to this directory")
}

// detectFiles runs detection over files concurrently and returns the results in input order.
func detectFiles(ctx context.Context, rt *app, files []util.ImageFile) []detectResult {
	results := make([]detectResult, len(files))
	sem := make(chan struct{}, goruntime.GOMAXPROCS(0))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, file util.ImageFile) {
			defer wg.Done()
			defer func() { <-sem }()

			res := detectResult{Path: file.Path, Frame: file.Frame}
			detections, err := detectFile(ctx, rt, file)
			if err != nil {
				rt.log.Warn("detection failed", zap.String("path", file.Path), zap.Error(err))
				res.Error = err.Error()
			}
			res.Detections = detections
			results[i] = res
		}(i, file)
	}
	wg.Wait()

	return results
}

func detectFile(ctx context.Context, rt *app, file util.ImageFile) ([]pipeline.Detection, error) {
	frame, err := images.DecodeFrame(file.Data, images.ChannelOrderBGR)
	if err != nil {
		return nil, err
	}

	detections, err := rt.pipeline.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}

	if annotateDir != "" {
		data, err := images.Encode(rt.pipeline.Annotate(frame, detections), images.FormatJPEG)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path)) + ".jpg"
		if err := os.WriteFile(filepath.Join(annotateDir, name), data, 0o644); err != nil {
			return nil, errors.Wrapf(err, "write %s", name)
		}
	}

	return detections, nil
}
