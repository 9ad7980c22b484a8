package cvmat

import (
	"testing"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestRoundTrip(t *testing.T) {
	frame := images.NewFrame(4, 3, images.ChannelOrderRGB)
	frame.SetRGB(1, 2, 10, 20, 30)

	mat, err := FromFrame(frame)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 4, mat.Cols())
	assert.Equal(t, 3, mat.Rows())
	// OpenCV stores blue first.
	v := mat.GetVecbAt(2, 1)
	assert.Equal(t, []uint8{30, 20, 10}, []uint8{v[0], v[1], v[2]})

	back, err := ToFrame(mat)
	require.NoError(t, err)
	assert.Equal(t, images.ChannelOrderBGR, back.Order)
	r, g, b := back.RGB(1, 2)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{r, g, b})
}

func TestToFrame_Invalid(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	_, err := ToFrame(empty)
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)

	gray := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1)
	defer gray.Close()
	_, err = ToFrame(gray)
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
}
