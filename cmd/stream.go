package cmd

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/images/cvmat"
	"github.com/nvr-ai/go-vision/pipeline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var streamOpts struct {
	resolution    string
	maxResolution string
	every         int
	show          bool
}

var streamCmd = &cobra.Command{
	Use:   "stream <device|file|url>",
	Short: "Detect objects on a camera, video file or network stream",
	Long: `Detect objects frame by frame. A numeric argument opens that capture device;
anything else is handed to OpenCV as a file name or stream URL.

Frames that fail to decode or detect are logged and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var capRes, maxRes images.Resolution
		var err error
		if streamOpts.resolution != "" {
			if capRes, err = images.ParseResolution(streamOpts.resolution); err != nil {
				return err
			}
		}
		if streamOpts.maxResolution != "" {
			if maxRes, err = images.ParseResolution(streamOpts.maxResolution); err != nil {
				return err
			}
		}

		rt, err := newApp(cfg, taskSet{detection: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		return stream(ctx, rt, args[0], capRes, maxRes)
	},
}

func init() {
	streamCmd.Flags().StringVar(&streamOpts.resolution, "resolution", "", "capture resolution preset, e.g. 720p")
	streamCmd.Flags().StringVar(&streamOpts.maxResolution, "max-resolution", "", "downscale larger frames to this preset before detection")
	streamCmd.Flags().IntVar(&streamOpts.every, "every", 1, "run detection on every n-th frame")
	streamCmd.Flags().BoolVar(&streamOpts.show, "show", false, "show annotated frames in a window")
}

func openCapture(source string) (*gocv.VideoCapture, bool, error) {
	if id, err := strconv.Atoi(source); err == nil {
		capture, err := gocv.OpenVideoCapture(id)
		return capture, true, err
	}
	capture, err := gocv.OpenVideoCapture(source)
	return capture, false, err
}

func stream(ctx context.Context, rt *app, source string, capRes, maxRes images.Resolution) error {
	capture, isDevice, err := openCapture(source)
	if err != nil {
		return errors.Wrapf(err, "open %s", source)
	}
	defer capture.Close()

	if capRes.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(capRes.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(capRes.Height))
	}

	var window *gocv.Window
	if streamOpts.show {
		window = gocv.NewWindow("vision")
		defer window.Close()
	}

	img := gocv.NewMat()
	defer img.Close()

	every := max(streamOpts.every, 1)
	rt.log.Info("stream started",
		zap.String("source", source),
		zap.Stringer("capture", capRes),
		zap.Int("every", every),
	)

	var (
		frameIndex int
		processed  int
		fps        float64
		lastReport = time.Now()
	)

	for ctx.Err() == nil {
		if ok := capture.Read(&img); !ok {
			if isDevice {
				return errors.Errorf("cannot read device %s", source)
			}
			rt.log.Info("end of stream", zap.String("source", source), zap.Int("frames", frameIndex))
			return nil
		}
		if img.Empty() {
			continue
		}
		frameIndex++
		if (frameIndex-1)%every != 0 {
			continue
		}

		frame, err := cvmat.ToFrame(img)
		if err != nil {
			rt.log.Warn("skipping frame", zap.Int("frame", frameIndex), zap.Error(err))
			continue
		}
		frame = images.Downscale(frame, maxRes)

		detections, err := rt.pipeline.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			rt.log.Warn("detection failed", zap.Int("frame", frameIndex), zap.Error(err))
			continue
		}

		processed++
		if elapsed := time.Since(lastReport).Seconds(); elapsed >= 1 {
			fps = float64(processed) / elapsed
			processed = 0
			lastReport = time.Now()
		}

		rt.log.Debug("frame",
			zap.Int("frame", frameIndex),
			zap.Int("detections", len(detections)),
			zap.Float64("fps", fps),
		)
		rt.prof.RecordMetric("stream.fps", fps)

		if window != nil {
			show(window, rt.pipeline, frame, detections)
		}
	}

	rt.log.Info("stream stopped", zap.String("source", source), zap.Int("frames", frameIndex))
	return nil
}

func show(window *gocv.Window, p *pipeline.Pipeline, frame *images.Frame, detections []pipeline.Detection) {
	mat, err := cvmat.FromFrame(p.Annotate(frame, detections))
	if err != nil {
		return
	}
	defer mat.Close()

	window.IMShow(mat)
	window.WaitKey(1)
}
