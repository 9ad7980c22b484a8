package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nvr-ai/go-vision/errdefs"
)

// ChannelOrder is the byte order of the three channels of a packed pixel.
type ChannelOrder int

const (
	// ChannelOrderBGR is the OpenCV order (gocv.Mat, camera capture).
	ChannelOrderBGR ChannelOrder = iota
	// ChannelOrderRGB is the order produced by Go image decoders.
	ChannelOrderRGB
)

// String implements fmt.Stringer.
func (o ChannelOrder) String() string {
	if o == ChannelOrderRGB {
		return "rgb"
	}
	return "bgr"
}

// Frame is a packed 3-channel 8-bit pixel buffer with a row stride of 3*Width.
//
// Frame implements image.Image so it can be handed to encoders directly.
type Frame struct {
	Width  int
	Height int
	Order  ChannelOrder
	Pix    []uint8
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int, order ChannelOrder) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Order:  order,
		Pix:    make([]uint8, width*height*3),
	}
}

// FrameFromImage copies any image.Image into a packed frame with the requested channel order.
func FrameFromImage(img image.Image, order ChannelOrder) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy(), order)

	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	Parallel(f.Height, func(start, end int) {
		for y := start; y < end; y++ {
			src := rgba.Pix[y*rgba.Stride:]
			dst := f.Pix[y*f.Width*3:]
			for x := 0; x < f.Width; x++ {
				r, g, b := src[x*4], src[x*4+1], src[x*4+2]
				if order == ChannelOrderBGR {
					r, b = b, r
				}
				dst[x*3], dst[x*3+1], dst[x*3+2] = r, g, b
			}
		}
	})

	return f
}

// Validate reports ErrInvalidInput for empty frames or a buffer that does not match the dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return errdefs.InvalidInput("frame is nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errdefs.InvalidInput("frame dimensions %dx%d must be positive", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 3; len(f.Pix) != want {
		return errdefs.InvalidInput("frame buffer has %d bytes, want %d for %dx%d", len(f.Pix), want, f.Width, f.Height)
	}
	return nil
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return f.Width * 3
}

// Offset returns the index of the first byte of pixel (x, y).
func (f *Frame) Offset(x, y int) int {
	return y*f.Width*3 + x*3
}

// RGB returns pixel (x, y) in red, green, blue order regardless of the frame's channel order.
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := f.Offset(x, y)
	if f.Order == ChannelOrderBGR {
		return f.Pix[i+2], f.Pix[i+1], f.Pix[i]
	}
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB writes pixel (x, y) from red, green, blue values.
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := f.Offset(x, y)
	if f.Order == ChannelOrderBGR {
		r, b = b, r
	}
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]uint8, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Order: f.Order, Pix: pix}
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	r, g, b := f.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Set implements draw.Image so font and shape drawing can target a frame directly.
func (f *Frame) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	f.SetRGB(x, y, rgba.R, rgba.G, rgba.B)
}
