// Package cvmat converts between OpenCV matrices and frames.
package cvmat

import (
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/images"
	"gocv.io/x/gocv"
)

// ToFrame copies a CV_8UC3 BGR matrix into a frame.
func ToFrame(mat gocv.Mat) (*images.Frame, error) {
	if mat.Empty() {
		return nil, errdefs.InvalidInput("empty matrix")
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, errdefs.InvalidInput("unsupported matrix type %v, want CV_8UC3", mat.Type())
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	return &images.Frame{
		Width:  src.Cols(),
		Height: src.Rows(),
		Order:  images.ChannelOrderBGR,
		Pix:    src.ToBytes(),
	}, nil
}

// FromFrame copies a frame into a new BGR matrix. The caller closes the matrix.
func FromFrame(frame *images.Frame) (gocv.Mat, error) {
	if err := frame.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	pix := frame.Pix
	if frame.Order == images.ChannelOrderRGB {
		pix = make([]uint8, len(frame.Pix))
		for i := 0; i+2 < len(pix); i += 3 {
			pix[i], pix[i+1], pix[i+2] = frame.Pix[i+2], frame.Pix[i+1], frame.Pix[i]
		}
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, pix)
	if err != nil {
		return gocv.NewMat(), errdefs.InvalidInput("create matrix: %v", err)
	}
	return mat, nil
}
