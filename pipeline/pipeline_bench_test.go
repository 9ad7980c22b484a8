package pipeline

import (
	"context"
	"testing"

	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/inference"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"go.uber.org/zap"
)

// BenchmarkRunDetection measures preprocessing and decoding around a constant engine across the capture
// presets a camera is likely to deliver.
func BenchmarkRunDetection(b *testing.B) {
	engine := inference.EngineFunc(func(context.Context, *preprocess.Tensor) (*inference.Output, error) {
		return &inference.Output{
			Data:  []float32{320, 320, 100, 50, 0.9, 0.8, 0.1},
			Shape: []int{1, 1, 7},
		}, nil
	})

	p, err := New(Options{Detection: detectionConfig(), DetectionEngine: engine, Logger: zap.NewNop()})
	if err != nil {
		b.Fatal(err)
	}

	for _, alias := range []string{"vga", "720p", "1080p", "4k"} {
		res, err := images.ParseResolution(alias)
		if err != nil {
			b.Fatal(err)
		}
		frame := images.NewFrame(res.Width, res.Height, images.ChannelOrderBGR)

		b.Run(alias, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := p.RunDetection(context.Background(), frame); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
