package images

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-vision/errdefs"
)

// AspectRatio names the aspect ratio of a camera resolution, e.g. "16:9".
type AspectRatio string

const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// Resolution is a camera capture preset.
type Resolution struct {
	// Alias is the short name accepted on the command line, e.g. "1080p".
	Alias       string      `json:"alias"`
	Name        string      `json:"name"`
	AspectRatio AspectRatio `json:"aspect_ratio"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

var resolutions = map[string]Resolution{
	"360p":  {Alias: "360p", Name: "nHD", AspectRatio: AspectRatio169, Width: 640, Height: 360},
	"480p":  {Alias: "480p", Name: "FWVGA", AspectRatio: AspectRatio169, Width: 854, Height: 480},
	"vga":   {Alias: "vga", Name: "VGA", AspectRatio: AspectRatio43, Width: 640, Height: 480},
	"540p":  {Alias: "540p", Name: "qHD 540p", AspectRatio: AspectRatio169, Width: 960, Height: 540},
	"720p":  {Alias: "720p", Name: "HD 720p", AspectRatio: AspectRatio169, Width: 1280, Height: 720},
	"wxga":  {Alias: "wxga", Name: "WXGA", AspectRatio: AspectRatio169, Width: 1366, Height: 768},
	"1mp":   {Alias: "1mp", Name: "1MP (5:4)", AspectRatio: AspectRatio54, Width: 1280, Height: 1024},
	"1080p": {Alias: "1080p", Name: "Full HD 1080p", AspectRatio: AspectRatio169, Width: 1920, Height: 1080},
	"2mp":   {Alias: "2mp", Name: "2MP (4:3)", AspectRatio: AspectRatio43, Width: 1600, Height: 1200},
	"1440p": {Alias: "1440p", Name: "QHD 1440p", AspectRatio: AspectRatio169, Width: 2560, Height: 1440},
	"3mp":   {Alias: "3mp", Name: "3MP (4:3)", AspectRatio: AspectRatio43, Width: 2048, Height: 1536},
	"4mp":   {Alias: "4mp", Name: "4MP (16:9)", AspectRatio: AspectRatio169, Width: 2688, Height: 1520},
	"6mp":   {Alias: "6mp", Name: "6MP (3:2)", AspectRatio: AspectRatio32, Width: 3072, Height: 2048},
	"4k":    {Alias: "4k", Name: "4K UHD", AspectRatio: AspectRatio169, Width: 3840, Height: 2160},
	"12mp":  {Alias: "12mp", Name: "12MP (4:3)", AspectRatio: AspectRatio43, Width: 4000, Height: 3000},
}

// Resolutions returns every preset ordered by pixel count, smallest first.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		pi, pj := all[i].Width*all[i].Height, all[j].Width*all[j].Height
		if pi != pj {
			return pi < pj
		}
		return all[i].Alias < all[j].Alias
	})
	return all
}

// ParseResolution looks up a preset by alias, case-insensitively.
func ParseResolution(alias string) (Resolution, error) {
	r, ok := resolutions[strings.ToLower(strings.TrimSpace(alias))]
	if !ok {
		return Resolution{}, errdefs.InvalidInput("unknown resolution %q", alias)
	}
	return r, nil
}

// HighestWithin returns the largest preset that fits inside width x height.
func HighestWithin(width, height int) (Resolution, bool) {
	var (
		best  Resolution
		found bool
	)
	for _, r := range Resolutions() {
		if r.Width <= width && r.Height <= height {
			best, found = r, true
		}
	}
	return best, found
}

// Downscale shrinks frame to fit inside max, keeping the aspect ratio. Frames that already fit are
// returned unchanged.
func Downscale(frame *Frame, max Resolution) *Frame {
	if max.Width <= 0 || max.Height <= 0 || (frame.Width <= max.Width && frame.Height <= max.Height) {
		return frame
	}
	return FrameFromImage(imaging.Fit(frame, max.Width, max.Height, imaging.Linear), frame.Order)
}
