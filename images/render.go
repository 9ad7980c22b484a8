package images

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation is a labelled box to draw onto a frame.
type Annotation struct {
	Box     Rect
	Caption string
	Color   color.RGBA
}

// DrawAnnotations draws every annotation as a rectangle outline with its caption on a filled bar above
// the top-left corner (inside the box when there is no room above).
func DrawAnnotations(dst draw.Image, annotations []Annotation, thickness int) {
	for _, a := range annotations {
		DrawBox(dst, a.Box, a.Color, thickness)
		if a.Caption != "" {
			DrawCaption(dst, int(a.Box.X1), int(a.Box.Y1), a.Caption, a.Color)
		}
	}
}

// DrawBox draws a rectangle outline clipped to the destination bounds.
func DrawBox(dst draw.Image, r Rect, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect := image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
	src := image.NewUniform(c)

	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thickness),
		image.Rect(rect.Min.X, rect.Max.Y-thickness, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thickness, rect.Max.Y),
		image.Rect(rect.Max.X-thickness, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		e = e.Intersect(dst.Bounds())
		if !e.Empty() {
			draw.Draw(dst, e, src, image.Point{}, draw.Src)
		}
	}
}

// DrawCaption renders text in black or white, whichever contrasts with bg, on a bar filled with bg.
func DrawCaption(dst draw.Image, x, y int, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	textW := font.MeasureString(face, text).Ceil()
	barH := metrics.Height.Ceil() + 2

	top := y - barH
	if top < dst.Bounds().Min.Y {
		top = y
	}
	bar := image.Rect(x, top, x+textW+4, top+barH).Intersect(dst.Bounds())
	if bar.Empty() {
		return
	}
	draw.Draw(dst, bar, image.NewUniform(bg), image.Point{}, draw.Src)

	fg := color.RGBA{A: 0xff}
	if luma(bg) < 128 {
		fg = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x+2, top+1+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

func luma(c color.RGBA) int {
	return (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
}
