package images

import (
	"testing"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	src := solidFrame(16, 8, ChannelOrderRGB, 30, 60, 90)
	data, err := Encode(src, FormatPNG)
	require.NoError(t, err)

	img := &Image{Data: data}
	frame, err := img.Decode(ChannelOrderBGR)
	require.NoError(t, err)

	assert.Equal(t, FormatPNG, img.Format)
	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 8, img.Height)
	assert.Equal(t, ChannelOrderBGR, frame.Order)
	assert.Equal(t, []uint8{90, 60, 30}, frame.Pix[:3])
}

func TestDecodeFrame_Invalid(t *testing.T) {
	data, err := Encode(solidFrame(16, 8, ChannelOrderRGB, 30, 60, 90), FormatPNG)
	require.NoError(t, err)
	truncated := data[:len(data)/2]

	for name, data := range map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": truncated,
	} {
		t.Run(name, func(t *testing.T) {
			frame, err := DecodeFrame(data, ChannelOrderBGR)
			assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
			assert.Nil(t, frame)
		})
	}
}

func TestComputeChecksum(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", ComputeChecksum(nil))
	assert.NotEqual(t, ComputeChecksum([]byte{1}), ComputeChecksum([]byte{2}))
}
