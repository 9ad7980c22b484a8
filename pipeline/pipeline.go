// Package pipeline - Frame-level detection and segmentation entry points.
//
// A Pipeline owns the preprocessing, engine call and postprocessing for up to one detection model and
// one segmentation model. Calls are stateless and safe for concurrent use.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/models"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/nvr-ai/go-vision/models/postprocess"
	"github.com/nvr-ai/go-vision/profiler"
	"go.uber.org/zap"
)

// Options configures a Pipeline. At least one of Detection and Segmentation must be set, each with its
// engine.
type Options struct {
	// Detection configures the detector; nil disables detection.
	Detection *model.Config
	// DetectionEngine runs the detector network.
	DetectionEngine inference.Engine
	// Segmentation configures the segmenter; nil disables segmentation.
	Segmentation *model.Config
	// SegmentationEngine runs the segmenter network.
	SegmentationEngine inference.Engine
	// Palette colors classes in overlays and annotations; nil uses a hash palette.
	Palette images.Palette
	// DebugDir dumps every preprocessed canvas as a PNG when set.
	DebugDir string
	// Logger is the logger; nil uses the global logger.
	Logger *zap.Logger
	// Profiler times every stage; nil disables timing.
	Profiler *profiler.RuntimeProfiler
}

// Detection is a bounding box with its class name resolved.
type Detection struct {
	postprocess.BoundingBox
	ClassName string `json:"class_name"`
}

// SegmentationResult is an annotated frame and the classes present in it.
type SegmentationResult struct {
	Frame   *images.Frame
	Classes []string
}

type stage struct {
	pre    *preprocess.Preprocessor
	engine inference.Engine
	labels *models.OutputClassSet
}

// Pipeline runs models on frames.
type Pipeline struct {
	detector  model.Detector
	segmenter model.Segmenter
	det       stage
	seg       stage
	palette   images.Palette
	log       *zap.Logger
	prof      *profiler.RuntimeProfiler
}

// New builds a pipeline from opts.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: ErrConfig when a model configuration is invalid, a model has no engine, or no model is
//     configured.
func New(opts Options) (*Pipeline, error) {
	if opts.Detection == nil && opts.Segmentation == nil {
		return nil, errdefs.Config("pipeline needs a detection or segmentation model")
	}

	p := &Pipeline{
		palette: opts.Palette,
		log:     logger.Named(opts.Logger, "pipeline"),
		prof:    opts.Profiler,
	}
	if p.palette == nil {
		p.palette = images.NewHashPalette()
	}

	if opts.Detection != nil {
		m, st, err := newStage(*opts.Detection, opts.DetectionEngine, opts)
		if err != nil {
			return nil, err
		}
		detector, ok := m.(model.Detector)
		if !ok {
			return nil, errdefs.Config("model %q is not a detector", opts.Detection.Name)
		}
		p.detector, p.det = detector, st
	}

	if opts.Segmentation != nil {
		m, st, err := newStage(*opts.Segmentation, opts.SegmentationEngine, opts)
		if err != nil {
			return nil, err
		}
		segmenter, ok := m.(model.Segmenter)
		if !ok {
			return nil, errdefs.Config("model %q is not a segmenter", opts.Segmentation.Name)
		}
		p.segmenter, p.seg = segmenter, st
	}

	return p, nil
}

func newStage(cfg model.Config, engine inference.Engine, opts Options) (model.Model, stage, error) {
	if engine == nil {
		return nil, stage{}, errdefs.Config("model %q has no engine", cfg.Name)
	}
	m, err := models.NewModel(cfg)
	if err != nil {
		return nil, stage{}, err
	}
	pre, err := preprocess.NewPreprocessor(m.PreprocessConfig(), opts.Logger)
	if err != nil {
		return nil, stage{}, err
	}
	pre.SetDebugMode(opts.DebugDir)
	labels, err := models.ClassSetFor(cfg)
	if err != nil {
		return nil, stage{}, err
	}
	return m, stage{pre: pre, engine: engine, labels: labels}, nil
}

// infer preprocesses frame and runs the engine. The returned release func hands the tensor buffer
// back to the pool and must be called once the output has been consumed.
func (p *Pipeline) infer(ctx context.Context, task string, st stage, frame *images.Frame) (*preprocess.Result, *inference.Output, error) {
	done := p.prof.StartOperation(task + ".preprocess")
	res, err := st.pre.Preprocess(frame)
	done()
	if err != nil {
		return nil, nil, err
	}

	done = p.prof.StartOperation(task + ".inference")
	out, err := st.engine.Run(ctx, res.Tensor)
	done()

	// An abandoned run may still be reading the tensor, so its buffer is left to the collector.
	if ctx.Err() == nil {
		st.pre.Release(res)
	}
	if err != nil {
		return nil, nil, err
	}
	return res, out, nil
}

// RunDetection detects objects in frame.
//
// Returns:
//   - []postprocess.BoundingBox: Boxes in frame coordinates, highest confidence first.
//   - error: ErrConfig without a detector, ErrInvalidInput for a bad frame or output shape, ErrEngine
//     for engine failures.
func (p *Pipeline) RunDetection(ctx context.Context, frame *images.Frame) ([]postprocess.BoundingBox, error) {
	if p.detector == nil {
		return nil, errdefs.Config("pipeline has no detection model")
	}

	res, out, err := p.infer(ctx, "detect", p.det, frame)
	if err != nil {
		return nil, err
	}

	done := p.prof.StartOperation("detect.postprocess")
	defer done()

	view, err := out.View()
	if err != nil {
		return nil, err
	}
	boxes, err := p.detector.PostProcess(view, res.Inverse)
	if err != nil {
		return nil, err
	}

	p.prof.RecordMetric("detections", float64(len(boxes)))
	p.log.Debug("detection done",
		zap.Int("width", frame.Width),
		zap.Int("height", frame.Height),
		zap.Int("detections", len(boxes)),
	)
	return boxes, nil
}

// Detect runs RunDetection and resolves class names.
func (p *Pipeline) Detect(ctx context.Context, frame *images.Frame) ([]Detection, error) {
	boxes, err := p.RunDetection(ctx, frame)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, len(boxes))
	for i, b := range boxes {
		detections[i] = Detection{BoundingBox: b, ClassName: p.det.labels.Name(b.ClassLabel)}
	}
	return detections, nil
}

// RunSegmentation segments frame and returns a copy with the class overlay blended in. frame itself is
// not modified.
//
// Returns:
//   - *images.Frame: The annotated copy.
//   - error: ErrConfig without a segmenter, ErrInvalidInput for a bad frame or output shape, ErrEngine
//     for engine failures.
func (p *Pipeline) RunSegmentation(ctx context.Context, frame *images.Frame) (*images.Frame, error) {
	res, err := p.segment(ctx, frame)
	if err != nil {
		return nil, err
	}
	return res.Frame, nil
}

// Segment runs RunSegmentation and also names the classes present in the map.
func (p *Pipeline) Segment(ctx context.Context, frame *images.Frame) (*SegmentationResult, error) {
	return p.segment(ctx, frame)
}

func (p *Pipeline) segment(ctx context.Context, frame *images.Frame) (*SegmentationResult, error) {
	if p.segmenter == nil {
		return nil, errdefs.Config("pipeline has no segmentation model")
	}

	res, out, err := p.infer(ctx, "segment", p.seg, frame)
	if err != nil {
		return nil, err
	}

	done := p.prof.StartOperation("segment.postprocess")
	view, err := out.View()
	if err != nil {
		done()
		return nil, err
	}
	segMap, err := p.segmenter.PostProcess(view)
	done()
	if err != nil {
		return nil, err
	}

	done = p.prof.StartOperation("segment.render")
	annotated := frame.Clone()
	err = p.segmenter.Render(annotated, segMap, res.Forward, p.palette)
	done()
	if err != nil {
		return nil, err
	}

	return &SegmentationResult{Frame: annotated, Classes: p.presentClasses(segMap)}, nil
}

func (p *Pipeline) presentClasses(segMap *postprocess.SegmentationMap) []string {
	seen := make(map[int32]bool)
	ids := make([]int, 0, 4)
	for _, c := range segMap.Class {
		if !seen[c] {
			seen[c] = true
			ids = append(ids, int(c))
		}
	}
	sort.Ints(ids)

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = p.seg.labels.Name(id)
	}
	return names
}

// Annotate returns a copy of frame with detections drawn as labelled boxes.
func (p *Pipeline) Annotate(frame *images.Frame, detections []Detection) *images.Frame {
	annotated := frame.Clone()
	annotations := make([]images.Annotation, len(detections))
	for i, d := range detections {
		annotations[i] = images.Annotation{
			Box:     d.Rect(),
			Caption: fmt.Sprintf("%s %.2f", d.ClassName, d.Confidence),
			Color:   p.palette.Color(d.ClassLabel),
		}
	}
	images.DrawAnnotations(annotated, annotations, 2)
	return annotated
}

// Close closes every engine the pipeline was built with.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, e := range []inference.Engine{p.det.engine, p.seg.engine} {
		if e == nil {
			continue
		}
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
