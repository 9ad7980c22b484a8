package postprocess

import (
	"image/color"
	"testing"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/tensorview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSegmentation(t *testing.T) {
	// [1][2][2][2]: pixel (0,0) {0.9, 0.1}, (1,0) {0.2, 0.7}, (0,1) tie {0.4, 0.4}, (1,1) {-1, 3}.
	data := []float32{
		0.9, 0.1, 0.2, 0.7,
		0.4, 0.4, -1, 3,
	}
	v, err := tensorview.New(data, 1, 2, 2, 2)
	require.NoError(t, err)

	seg, err := DecodeSegmentation(v, 2)
	require.NoError(t, err)
	require.Equal(t, 2, seg.Width)
	require.Equal(t, 2, seg.Height)

	tests := []struct {
		x, y      int
		wantClass int32
		wantProb  float32
	}{
		{0, 0, 0, 0.9},
		{1, 0, 1, 0.7},
		{0, 1, 0, 0.4},
		{1, 1, 1, 3}, // raw score, no softmax
	}
	for _, tt := range tests {
		class, prob := seg.At(tt.x, tt.y)
		assert.Equal(t, tt.wantClass, class, "pixel (%d,%d)", tt.x, tt.y)
		assert.Equal(t, tt.wantProb, prob, "pixel (%d,%d)", tt.x, tt.y)
	}
}

func TestDecodeSegmentation_SingleRow(t *testing.T) {
	// [1][1][2][2]: one row of two pixels keeps its height axis.
	v, err := tensorview.New([]float32{0.9, 0.1, 0.2, 0.7}, 1, 1, 2, 2)
	require.NoError(t, err)

	seg, err := DecodeSegmentation(v, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, seg.Width)
	assert.Equal(t, 1, seg.Height)
	assert.Equal(t, []int32{0, 1}, seg.Class)
	assert.Equal(t, []float32{0.9, 0.7}, seg.Prob)
}

func TestDecodeSegmentation_Errors(t *testing.T) {
	v, err := tensorview.New(make([]float32, 12), 2, 2, 3)
	require.NoError(t, err)

	_, err = DecodeSegmentation(v, 2)
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)

	_, err = DecodeSegmentation(v, 0)
	assert.ErrorIs(t, err, errdefs.ErrConfig)

	flat, err := tensorview.New(make([]float32, 4), 4)
	require.NoError(t, err)
	_, err = DecodeSegmentation(flat, 4)
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
}

func TestSegmentationMap_Warp(t *testing.T) {
	// 2x2 network map rendered onto an 8x4 source letterboxed into 2x2.
	seg := &SegmentationMap{
		Width: 2, Height: 2,
		Class: []int32{1, 2, 3, 4},
		Prob:  []float32{0.1, 0.2, 0.3, 0.4},
	}
	fwd, _, err := images.NewLetterboxTransform(8, 4, 2, 2)
	require.NoError(t, err)

	out := seg.Warp(fwd, 8, 4)
	require.Equal(t, 8, out.Width)
	require.Equal(t, 4, out.Height)
	require.Len(t, out.Class, 32)
	require.Len(t, out.Prob, 32)

	for _, c := range out.Class {
		assert.Contains(t, []int32{0, 1, 2, 3, 4}, c, "class ids are never interpolated")
	}
	for _, p := range out.Prob {
		assert.GreaterOrEqual(t, p, float32(0))
		assert.LessOrEqual(t, p, float32(0.4))
	}
}

func TestComposite_Blend(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	palette := images.NewTablePalette([]color.RGBA{red})

	tests := []struct {
		name  string
		prob  float32
		orig  uint8
		wantR uint8
		wantG uint8
	}{
		// fg = 0.6, bg = 0.4
		{name: "zero probability", prob: 0, orig: 100, wantR: uint8(0.4*100 + 0.6*255), wantG: 40},
		// fg = min(0.6+0.2, 0.8) = 0.8
		{name: "full probability", prob: 1, orig: 100, wantR: uint8(0.2*100 + 0.8*255), wantG: 20},
		// fg capped at 0.8
		{name: "raw score above one", prob: 5, orig: 100, wantR: uint8(0.2*100 + 0.8*255), wantG: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := images.NewFrame(1, 1, images.ChannelOrderBGR)
			frame.SetRGB(0, 0, tt.orig, tt.orig, tt.orig)
			seg := &SegmentationMap{Width: 1, Height: 1, Class: []int32{0}, Prob: []float32{tt.prob}}

			require.NoError(t, Composite(frame, seg, palette))

			r, g, b := frame.RGB(0, 0)
			assert.InDelta(t, tt.wantR, r, 1)
			assert.InDelta(t, tt.wantG, g, 1)
			assert.Equal(t, g, b)
			// BGR storage: red lands in the last byte.
			assert.Equal(t, r, frame.Pix[2])
		})
	}
}

func TestComposite_Mismatch(t *testing.T) {
	frame := images.NewFrame(4, 4, images.ChannelOrderBGR)
	err := Composite(frame, NewSegmentationMap(2, 2), images.NewHashPalette())
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)

	err = Render(&images.Frame{}, NewSegmentationMap(2, 2), images.IdentityTransform, images.NewHashPalette())
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
}

func TestRender_InPlace(t *testing.T) {
	frame := images.NewFrame(8, 8, images.ChannelOrderRGB)
	seg := NewSegmentationMap(4, 4)
	for i := range seg.Class {
		seg.Class[i] = 1
		seg.Prob[i] = 1
	}
	fwd, _, err := images.NewLetterboxTransform(8, 8, 4, 4)
	require.NoError(t, err)

	palette := images.NewTablePalette([]color.RGBA{{A: 255}, {G: 200, A: 255}})
	require.NoError(t, Render(frame, seg, fwd, palette))

	_, g, _ := frame.RGB(4, 4)
	assert.InDelta(t, 160, g, 1) // 0.8 * 200
}
