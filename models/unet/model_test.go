package unet

import (
	"image/color"
	"testing"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/nvr-ai/go-vision/models/model"
	"github.com/nvr-ai/go-vision/models/postprocess"
	"github.com/nvr-ai/go-vision/models/tensorview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, width, height, numClasses int) *UNet {
	t.Helper()
	m, err := NewModel(model.Config{
		InputWidth:      width,
		InputHeight:     height,
		NumClasses:      numClasses,
		NMS:             *postprocess.DefaultNMSConfig(),
		KeepAspectRatio: true,
	})
	require.NoError(t, err)
	return m
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t, 4, 4, 2)
	assert.Equal(t, model.ModelNameUNet, m.Options().Name)
	assert.Equal(t, model.TaskSegment, m.Task())
	assert.Equal(t, "unet", m.PreprocessConfig().Name)

	_, err := NewModel(model.Config{Name: model.ModelNameYOLOv5, InputWidth: 4, InputHeight: 4, NumClasses: 2})
	assert.ErrorIs(t, err, errdefs.ErrConfig)
}

func TestPostProcess(t *testing.T) {
	m := newTestModel(t, 2, 2, 2)

	output, err := tensorview.New([]float32{
		0.1, 0.9, 0.8, 0.2,
		0.5, 0.5, 0.3, 0.7,
	}, 1, 2, 2, 2)
	require.NoError(t, err)

	seg, err := m.PostProcess(output)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 0, 0, 1}, seg.Class)
	assert.InDeltaSlice(t, []float32{0.9, 0.8, 0.5, 0.7}, seg.Prob, 1e-6)
}

func TestRender_SmallerMapIsRescaled(t *testing.T) {
	m := newTestModel(t, 4, 4, 2)

	// A 2x2 map from a stride-2 head, all class 1 with probability 1.
	seg := postprocess.NewSegmentationMap(2, 2)
	for i := range seg.Class {
		seg.Class[i] = 1
		seg.Prob[i] = 1
	}

	frame := images.NewFrame(4, 4, images.ChannelOrderRGB)
	palette := images.NewTablePalette([]color.RGBA{{A: 255}, {R: 200, A: 255}})

	require.NoError(t, m.Render(frame, seg, images.IdentityTransform, palette))

	// Every pixel maps to class 1 through the rescaled transform. Interior pixels see full probability;
	// edge pixels blend the border into their probability and get a slightly lighter tint.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b := frame.RGB(x, y)
			assert.GreaterOrEqual(t, r, uint8(140), "pixel (%d, %d)", x, y)
			assert.Zero(t, g)
			assert.Zero(t, b)
		}
	}
	r, _, _ := frame.RGB(1, 2)
	assert.Equal(t, uint8(160), r)
}

func TestRender_NilMap(t *testing.T) {
	m := newTestModel(t, 4, 4, 2)
	err := m.Render(images.NewFrame(4, 4, images.ChannelOrderRGB), nil, images.IdentityTransform, images.NewHashPalette())
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
}
