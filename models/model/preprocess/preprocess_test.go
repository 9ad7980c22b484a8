package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, order images.ChannelOrder, r, g, b uint8) *images.Frame {
	f := images.NewFrame(w, h, order)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.SetRGB(x, y, r, g, b)
		}
	}
	return f
}

func newPreprocessor(t *testing.T, cfg *ModelConfig) *Preprocessor {
	t.Helper()
	p, err := NewPreprocessor(cfg, nil)
	require.NoError(t, err)
	return p
}

// TestPreprocess_CanvasSize validates that every source aspect ratio lands on the configured input size.
func TestPreprocess_CanvasSize(t *testing.T) {
	sources := []struct {
		name string
		w, h int
	}{
		{"1080p", 1920, 1080},
		{"portrait", 720, 1280},
		{"square", 640, 640},
		{"tiny", 3, 2},
		{"odd", 641, 479},
	}

	for _, keep := range []bool{true, false} {
		for _, s := range sources {
			t.Run(s.name, func(t *testing.T) {
				cfg := GetYOLOv5Config(320, 256)
				cfg.KeepAspectRatio = keep
				p := newPreprocessor(t, cfg)

				res, err := p.Preprocess(solid(s.w, s.h, images.ChannelOrderBGR, 1, 2, 3))
				require.NoError(t, err)

				assert.Equal(t, 320, res.Canvas.Width)
				assert.Equal(t, 256, res.Canvas.Height)
				assert.Equal(t, []int{1, 3, 256, 320}, res.Tensor.Shape)
				assert.Len(t, res.Tensor.Data, 3*256*320)
				assert.Equal(t, s.w, res.OriginalWidth)
				assert.Equal(t, s.h, res.OriginalHeight)
			})
		}
	}
}

func TestPreprocess_LetterboxTensor(t *testing.T) {
	// Wide BGR frame: pure blue content, gray padding above and below.
	p := newPreprocessor(t, GetYOLOv5Config(64, 64))
	res, err := p.Preprocess(solid(128, 32, images.ChannelOrderBGR, 0, 0, 255))
	require.NoError(t, err)

	plane := 64 * 64
	at := func(c, x, y int) float32 { return res.Tensor.Data[c*plane+y*64+x] }

	// Padding row: 114/255 in every plane.
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 114.0/255.0, at(c, 32, 0), 1e-6)
	}
	// Content: plane 0 is red, plane 2 is blue.
	assert.InDelta(t, 0, at(0, 32, 32), 1e-6)
	assert.InDelta(t, 0, at(1, 32, 32), 1e-6)
	assert.InDelta(t, 1, at(2, 32, 32), 1e-6)

	for _, v := range res.Tensor.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestPreprocess_LayoutsAndModes(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ModelConfig)
		order     images.ChannelOrder
		wantShape []int
		wantFirst [3]float32 // the three channel values of pixel (0,0) in tensor order
	}{
		{
			name:      "rgb chw from bgr",
			order:     images.ChannelOrderBGR,
			wantShape: []int{1, 3, 4, 4},
			wantFirst: [3]float32{10.0 / 255, 20.0 / 255, 30.0 / 255},
		},
		{
			name:      "rgb chw from rgb",
			order:     images.ChannelOrderRGB,
			wantShape: []int{1, 3, 4, 4},
			wantFirst: [3]float32{10.0 / 255, 20.0 / 255, 30.0 / 255},
		},
		{
			name:      "bgr hwc",
			mutate:    func(c *ModelConfig) { c.ColorMode = ColorModeBGR; c.ChannelOrder = ChannelOrderHWC },
			order:     images.ChannelOrderBGR,
			wantShape: []int{1, 4, 4, 3},
			wantFirst: [3]float32{30.0 / 255, 20.0 / 255, 10.0 / 255},
		},
		{
			name:      "no normalization",
			mutate:    func(c *ModelConfig) { c.NormalizationType = NormalizeNone },
			order:     images.ChannelOrderRGB,
			wantShape: []int{1, 3, 4, 4},
			wantFirst: [3]float32{10, 20, 30},
		},
		{
			name:      "minus one to one",
			mutate:    func(c *ModelConfig) { c.NormalizationType = NormalizeMinusOneToOne },
			order:     images.ChannelOrderRGB,
			wantShape: []int{1, 3, 4, 4},
			wantFirst: [3]float32{10/127.5 - 1, 20/127.5 - 1, 30/127.5 - 1},
		},
		{
			name: "standardize",
			mutate: func(c *ModelConfig) {
				c.NormalizationType = NormalizeStandardize
				c.MeanValues = []float32{10, 10, 10}
				c.StdValues = []float32{2, 5, 10}
			},
			order:     images.ChannelOrderRGB,
			wantShape: []int{1, 3, 4, 4},
			wantFirst: [3]float32{0, 2, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetYOLOv5Config(4, 4)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			p := newPreprocessor(t, cfg)

			res, err := p.Preprocess(solid(4, 4, tt.order, 10, 20, 30))
			require.NoError(t, err)
			require.Equal(t, tt.wantShape, res.Tensor.Shape)

			var got [3]float32
			for k := 0; k < 3; k++ {
				if cfg.ChannelOrder == ChannelOrderHWC {
					got[k] = res.Tensor.Data[k]
				} else {
					got[k] = res.Tensor.Data[k*16]
				}
			}
			for k := range got {
				assert.InDelta(t, tt.wantFirst[k], got[k], 1e-5, "channel %d", k)
			}
		})
	}
}

func TestPreprocess_Transforms(t *testing.T) {
	p := newPreprocessor(t, GetYOLOv5Config(640, 640))
	res, err := p.Preprocess(solid(1280, 720, images.ChannelOrderBGR, 0, 0, 0))
	require.NoError(t, err)

	x, y := res.Forward.Apply(640, 360)
	bx, by := res.Inverse.Apply(x, y)
	assert.InDelta(t, 640, bx, 1e-3)
	assert.InDelta(t, 360, by, 1e-3)
	assert.InDelta(t, 0.5, res.Forward[0], 1e-6)
}

func TestPreprocess_InvalidInput(t *testing.T) {
	p := newPreprocessor(t, GetYOLOv5Config(64, 64))

	for name, f := range map[string]*images.Frame{
		"nil":          nil,
		"empty":        images.NewFrame(0, 0, images.ChannelOrderBGR),
		"short buffer": {Width: 10, Height: 10, Pix: make([]uint8, 5)},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := p.Preprocess(f)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
		})
	}
}

func TestNewPreprocessor_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ModelConfig
	}{
		{name: "nil", cfg: nil},
		{name: "zero width", cfg: GetYOLOv5Config(0, 640)},
		{name: "standardize without stats", cfg: func() *ModelConfig {
			c := GetYOLOv5Config(64, 64)
			c.NormalizationType = NormalizeStandardize
			return c
		}()},
		{name: "zero std", cfg: func() *ModelConfig {
			c := GetImageNetConfig("x", 64, 64)
			c.StdValues = []float32{1, 0, 1}
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreprocessor(tt.cfg, nil)
			assert.ErrorIs(t, err, errdefs.ErrConfig)
		})
	}
}

func TestPreprocess_DebugDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	p := newPreprocessor(t, GetYOLOv5Config(32, 32))
	p.SetDebugMode(dir)

	_, err := p.Preprocess(solid(64, 16, images.ChannelOrderBGR, 9, 9, 9))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "yolov5-000001.png", entries[0].Name())
}

func TestPreprocess_DebugDumpFailureIgnored(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	p := newPreprocessor(t, GetYOLOv5Config(32, 32))
	p.SetDebugMode(file)

	res, err := p.Preprocess(solid(8, 8, images.ChannelOrderBGR, 1, 1, 1))
	require.NoError(t, err)
	assert.NotNil(t, res.Tensor)
}

func TestPreprocessor_Release(t *testing.T) {
	p := newPreprocessor(t, GetYOLOv5Config(16, 16))
	res, err := p.Preprocess(solid(16, 16, images.ChannelOrderBGR, 1, 1, 1))
	require.NoError(t, err)

	p.Release(res)
	assert.Nil(t, res.Tensor.Data)
	assert.NotPanics(t, func() { p.Release(nil) })
}
