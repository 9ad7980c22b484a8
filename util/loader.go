package util

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/pkg/errors"
)

// ImageExtensions lists the file extensions LoadImageFiles picks up.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp", ".gif"}

var frameNumber = regexp.MustCompile(`(\d+)$`)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the trailing number of the file name ("frame-12.jpg" is 12), or -1 when there is none.
	Frame int
}

// IsImageFile reports whether the path has a supported image extension.
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadImageFiles reads a single image file, or every image file directly inside a directory.
//
// Arguments:
//   - path: An image file or a directory containing image files.
//
// Returns:
//   - []ImageFile: The files ordered by frame number, then by name.
//   - error: ErrInvalidInput when the path holds no images, or the read error.
func LoadImageFiles(path string) ([]ImageFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errdefs.InvalidInput("stat %s: %v", path, err)
	}

	if !info.IsDir() {
		if !IsImageFile(path) {
			return nil, errdefs.InvalidInput("%s is not a supported image file", path)
		}
		file, err := readImageFile(path)
		if err != nil {
			return nil, err
		}
		return []ImageFile{file}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", path)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		file, err := readImageFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, errdefs.InvalidInput("no image files in %s", path)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Frame != files[j].Frame {
			return files[i].Frame < files[j].Frame
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func readImageFile(path string) (ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageFile{}, errors.Wrapf(err, "read %s", path)
	}

	frame := -1
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := frameNumber.FindString(base); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			frame = n
		}
	}

	return ImageFile{Path: path, Data: data, Frame: frame}, nil
}
