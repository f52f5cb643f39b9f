package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ClassNames is an ordered class-name table indexed by class id.
type ClassNames []string

// Name resolves a class id. Ids outside the table render as "unknown <id>"
// rather than failing.
func (c ClassNames) Name(id int) string {
	if id >= 0 && id < len(c) {
		return c[id]
	}
	return fmt.Sprintf("unknown %d", id)
}

// Len returns the number of known classes.
func (c ClassNames) Len() int {
	return len(c)
}

// LoadClassNames reads one class name per line. Blank lines inside the file
// keep their index so ids stay aligned with the network's labelmap; trailing
// blank lines are dropped.
//
// Arguments:
//   - r: The label file contents.
//
// Returns:
//   - ClassNames: The table, in file order.
//   - error: If reading fails or the file holds no names.
func LoadClassNames(r io.Reader) (ClassNames, error) {
	var names ClassNames
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read class names")
	}
	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	if len(names) == 0 {
		return nil, errors.New("class names: empty label file")
	}
	return names, nil
}

// LoadClassNamesFile reads a label file from disk.
func LoadClassNamesFile(path string) (ClassNames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open label file")
	}
	defer f.Close()

	names, err := LoadClassNames(f)
	if err != nil {
		return nil, errors.Wrapf(err, "label file %s", path)
	}
	return names, nil
}

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full list of labels.
type OutputClassSet struct {
	// Class set identifier.
	Style ModelFamily
	// Classes that are supported and mappable.
	Classes []OutputClass
}

// Names flattens the set into a ClassNames table indexed by class index.
func (s OutputClassSet) Names() ClassNames {
	size := 0
	for _, c := range s.Classes {
		size = max(size, c.Index+1)
	}
	names := make(ClassNames, size)
	for _, c := range s.Classes {
		names[c.Index] = c.Name
	}
	return names
}

func newClassSet(style ModelFamily, names ...string) OutputClassSet {
	classes := make([]OutputClass, len(names))
	for i, n := range names {
		classes[i] = OutputClass{Index: i, Name: n}
	}
	return OutputClassSet{Style: style, Classes: classes}
}

// MaskRCNNClasses is TensorFlow's 90 id COCO labelmap shifted to zero-based
// ids, as emitted by the Mask R-CNN Inception v2 detection_out_final output.
// Ids that the 2017 COCO release dropped keep their original names.
var MaskRCNNClasses = newClassSet(ModelFamilyMaskRCNN,
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "street sign", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe",
	"hat", "backpack", "umbrella", "shoe", "eye glasses", "handbag", "tie", "suitcase",
	"frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "plate", "wine glass", "cup", "fork",
	"knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot",
	"hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant", "bed", "mirror",
	"dining table", "window", "desk", "toilet", "door", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "blender",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
)

// COCOClasses is the 80 COCO classes plus "__background__" at index 0.
var COCOClasses = newClassSet(ModelFamilyCOCO,
	"__background__", "person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe",
	"backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard",
	"sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana",
	"apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake",
	"chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
)

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list.
var YOLOClasses = OutputClassSet{
	Style: ModelFamilyYOLO,
	Classes: func() []OutputClass {
		classes := make([]OutputClass, len(COCOClasses.Classes)-1) // drop background
		for i := 1; i < len(COCOClasses.Classes); i++ {
			classes[i-1] = OutputClass{i - 1, COCOClasses.Classes[i].Name}
		}
		return classes
	}(),
}

// PascalVOCClasses is the 20 Pascal VOC classes + "__background__" at index 0.
var PascalVOCClasses = newClassSet(ModelFamilyVOC,
	"__background__", "aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat",
	"chair", "cow", "diningtable", "dog", "horse", "motorbike", "person", "pottedplant",
	"sheep", "sofa", "train", "tvmonitor",
)

// AllClassSets collects every OutputClassSet in one place.
var AllClassSets = []OutputClassSet{
	MaskRCNNClasses,
	COCOClasses,
	YOLOClasses,
	PascalVOCClasses,
}

// LookupClassSet returns the built-in class set of a model family.
func LookupClassSet(style ModelFamily) (OutputClassSet, bool) {
	for _, set := range AllClassSets {
		if set.Style == style {
			return set, true
		}
	}
	return OutputClassSet{}, false
}
