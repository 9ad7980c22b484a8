// Package models - Model registry and class label sets.
package models

import (
	"fmt"
	"os"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModelFamily identifies the naming convention / dataset of a label set.
type ModelFamily string

const (
	// ModelFamilyYOLO is the 80 COCO classes, no background class.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyCOCO is the 80 COCO classes plus background at index 0.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyVOC is the 20 Pascal VOC classes plus background at index 0.
	ModelFamilyVOC ModelFamily = "voc"
)

// OutputClassSet maps class ids returned by a model to human-readable names. A set is immutable once
// built and safe to share between pipelines.
type OutputClassSet struct {
	// Class set identifier.
	Style ModelFamily `yaml:"style"`
	// Names indexed by class id.
	Names []string `yaml:"names"`
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewOutputClassSet copies names into a new set.
func NewOutputClassSet(style ModelFamily, names []string) *OutputClassSet {
	s := &OutputClassSet{Style: style, Names: append([]string(nil), names...)}
	s.buildNameIndexMap()
	return s
}

func (s *OutputClassSet) buildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Names))
	for i, n := range s.Names {
		if _, dup := s.nameToIdx[n]; !dup {
			s.nameToIdx[n] = i
		}
	}
}

// Len returns the number of classes.
func (s *OutputClassSet) Len() int {
	return len(s.Names)
}

// Name returns the label of class idx, or "class_<idx>" when idx is outside the set.
func (s *OutputClassSet) Name(idx int) string {
	if idx < 0 || idx >= len(s.Names) {
		return fmt.Sprintf("class_%d", idx)
	}
	return s.Names[idx]
}

// Index returns the class id for a label.
func (s *OutputClassSet) Index(name string) (int, bool) {
	idx, ok := s.nameToIdx[name]
	return idx, ok
}

// LoadClassSet reads a label file. The YAML document is either a plain list of names or a mapping with
// "style" and "names" keys.
func LoadClassSet(path string) (*OutputClassSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read label file %s", path)
	}

	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		var set OutputClassSet
		if err2 := yaml.Unmarshal(data, &set); err2 != nil {
			return nil, errdefs.Config("label file %s: %v", path, err2)
		}
		if len(set.Names) == 0 {
			return nil, errdefs.Config("label file %s has no names", path)
		}
		return NewOutputClassSet(set.Style, set.Names), nil
	}
	if len(names) == 0 {
		return nil, errdefs.Config("label file %s has no names", path)
	}

	return NewOutputClassSet("", names), nil
}

// BuiltinClassSet returns one of the built-in label sets.
func BuiltinClassSet(style ModelFamily) (*OutputClassSet, error) {
	switch style {
	case ModelFamilyYOLO:
		return NewOutputClassSet(style, yoloNames), nil
	case ModelFamilyCOCO:
		return NewOutputClassSet(style, append([]string{"__background__"}, yoloNames...)), nil
	case ModelFamilyVOC:
		return NewOutputClassSet(style, vocNames), nil
	default:
		return nil, errdefs.Config("unknown label set %q", style)
	}
}

// yoloNames is the 80 COCO classes; YOLO models index directly into this zero-based list.
var yoloNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus",
	"train", "truck", "boat", "traffic light", "fire hydrant", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe",
	"backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza",
	"donut", "cake", "chair", "couch", "potted plant", "bed",
	"dining table", "toilet", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// vocNames is the 20 Pascal VOC classes plus "__background__" at index 0.
var vocNames = []string{
	"__background__", "aeroplane", "bicycle", "bird", "boat", "bottle",
	"bus", "car", "cat", "chair", "cow", "diningtable",
	"dog", "horse", "motorbike", "person", "pottedplant", "sheep",
	"sofa", "train", "tvmonitor",
}
