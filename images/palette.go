package images

import (
	"image/color"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette maps a class id to a display color. Implementations are deterministic and safe for concurrent
// use.
type Palette interface {
	Color(classID int) color.RGBA
}

// HashPalette derives a color from the class id alone: hue and saturation come from a shift/xor hash of
// the id, value is fixed at 1. The same id yields the same color in every process.
type HashPalette struct {
	cache sync.Map
}

// NewHashPalette returns an empty, lazily filled HashPalette.
func NewHashPalette() *HashPalette {
	return &HashPalette{}
}

// Color implements Palette.
func (p *HashPalette) Color(classID int) color.RGBA {
	if c, ok := p.cache.Load(classID); ok {
		return c.(color.RGBA)
	}
	c := HashColor(classID)
	p.cache.Store(classID, c)
	return c
}

// HashColor computes the HashPalette color for a class id without caching.
func HashColor(classID int) color.RGBA {
	id := uint32(classID)
	h := float64(((id<<2)^0x937151)%100) / 100
	s := float64(((id<<3)^0x315793)%100) / 100

	// Channels are truncated, not rounded, so ids keep the colors existing overlays were drawn with.
	c := colorful.Hsv(h*360, s, 1).Clamped()
	return color.RGBA{R: uint8(c.R * 255), G: uint8(c.G * 255), B: uint8(c.B * 255), A: 0xff}
}

// TablePalette looks colors up in a fixed table. Ids beyond the table wrap around; negative ids map to
// the first entry.
type TablePalette struct {
	colors []color.RGBA
}

// NewTablePalette copies colors into a new palette. An empty table falls back to DefaultColorTable.
func NewTablePalette(colors []color.RGBA) *TablePalette {
	if len(colors) == 0 {
		colors = DefaultColorTable
	}
	table := make([]color.RGBA, len(colors))
	copy(table, colors)
	return &TablePalette{colors: table}
}

// Color implements Palette.
func (p *TablePalette) Color(classID int) color.RGBA {
	if classID < 0 {
		return p.colors[0]
	}
	return p.colors[classID%len(p.colors)]
}

// Len returns the table size.
func (p *TablePalette) Len() int {
	return len(p.colors)
}

// DefaultColorTable holds 80 visually distinct colors, one per COCO class.
var DefaultColorTable = []color.RGBA{
	{216, 82, 24, 0xff}, {236, 176, 31, 0xff}, {125, 46, 141, 0xff}, {118, 171, 47, 0xff},
	{76, 189, 237, 0xff}, {238, 19, 46, 0xff}, {76, 76, 76, 0xff}, {153, 153, 153, 0xff},
	{255, 0, 0, 0xff}, {255, 127, 0, 0xff}, {190, 190, 0, 0xff}, {0, 255, 0, 0xff},
	{0, 0, 255, 0xff}, {170, 0, 255, 0xff}, {84, 84, 0, 0xff}, {84, 170, 0, 0xff},
	{84, 255, 0, 0xff}, {170, 84, 0, 0xff}, {170, 170, 0, 0xff}, {170, 255, 0, 0xff},
	{255, 84, 0, 0xff}, {255, 170, 0, 0xff}, {255, 255, 0, 0xff}, {0, 84, 127, 0xff},
	{0, 170, 127, 0xff}, {0, 255, 127, 0xff}, {84, 0, 127, 0xff}, {84, 84, 127, 0xff},
	{84, 170, 127, 0xff}, {84, 255, 127, 0xff}, {170, 0, 127, 0xff}, {170, 84, 127, 0xff},
	{170, 170, 127, 0xff}, {170, 255, 127, 0xff}, {255, 0, 127, 0xff}, {255, 84, 127, 0xff},
	{255, 170, 127, 0xff}, {255, 255, 127, 0xff}, {0, 84, 255, 0xff}, {0, 170, 255, 0xff},
	{0, 255, 255, 0xff}, {84, 0, 255, 0xff}, {84, 84, 255, 0xff}, {84, 170, 255, 0xff},
	{84, 255, 255, 0xff}, {170, 0, 255, 0xff}, {170, 84, 255, 0xff}, {170, 170, 255, 0xff},
	{170, 255, 255, 0xff}, {255, 0, 255, 0xff}, {255, 84, 255, 0xff}, {255, 170, 255, 0xff},
	{42, 0, 0, 0xff}, {84, 0, 0, 0xff}, {127, 0, 0, 0xff}, {170, 0, 0, 0xff},
	{212, 0, 0, 0xff}, {255, 0, 0, 0xff}, {0, 42, 0, 0xff}, {0, 84, 0, 0xff},
	{0, 127, 0, 0xff}, {0, 170, 0, 0xff}, {0, 212, 0, 0xff}, {0, 255, 0, 0xff},
	{0, 0, 42, 0xff}, {0, 0, 84, 0xff}, {0, 0, 127, 0xff}, {0, 0, 170, 0xff},
	{0, 0, 212, 0xff}, {0, 0, 255, 0xff}, {0, 0, 0, 0xff}, {36, 36, 36, 0xff},
	{72, 72, 72, 0xff}, {109, 109, 109, 0xff}, {145, 145, 145, 0xff}, {182, 182, 182, 0xff},
	{218, 218, 218, 0xff}, {0, 113, 188, 0xff}, {80, 182, 188, 0xff}, {127, 127, 0, 0xff},
}
