package images

import (
	"bytes"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// ImageFormat represents supported image formats.
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
)

// Image is an encoded image with its format and, once known, its dimensions.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Decode decodes the image into a frame with the requested channel order, applying EXIF orientation.
// Format, Width and Height are filled in from the decoded data.
func (i *Image) Decode(order ChannelOrder) (*Frame, error) {
	if len(i.Data) == 0 {
		return nil, errdefs.InvalidInput("image data is empty")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return nil, errdefs.InvalidInput("unrecognised image data: %v", err)
	}

	img, err := imaging.Decode(bytes.NewReader(i.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errdefs.InvalidInput("decode %s image: %v", format, err)
	}

	frame := FrameFromImage(img, order)
	i.Format = ImageFormat(format)
	i.Width = frame.Width
	i.Height = frame.Height

	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame, nil
}

// DecodeFrame decodes raw encoded bytes into a frame.
func DecodeFrame(data []byte, order ChannelOrder) (*Frame, error) {
	img := &Image{Data: data}
	return img.Decode(order)
}

// Encode encodes an image as JPEG or PNG. Other formats fall back to JPEG.
func Encode(img image.Image, format ImageFormat) ([]byte, error) {
	var buf bytes.Buffer

	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatBMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", format)
	}

	return buf.Bytes(), nil
}
