package postprocess

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-segment/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OutputMode selects how object masks are emitted.
type OutputMode string

const (
	// ModeLabel composites every object into one label image.
	ModeLabel OutputMode = "label"
	// ModeInstance keeps one independent full-frame mask per object.
	ModeInstance OutputMode = "instance"
)

// MergePolicy decides the label of a pixel covered by more than one object
// in label mode.
type MergePolicy string

const (
	// MergeLastWriter lets the later detection overwrite earlier labels.
	MergeLastWriter MergePolicy = "last"
	// MergeHighestConfidence keeps the label of the most confident detection;
	// ties keep the earlier detection.
	MergeHighestConfidence MergePolicy = "confidence"
	// MergeBitwiseOr ORs (class id + 1) into the existing label. Overlapping
	// objects of different classes produce values that are not class labels.
	MergeBitwiseOr MergePolicy = "or"
)

// ErrUnknownMode is returned for an unsupported output mode or merge policy.
var ErrUnknownMode = errors.New("postprocess: unknown output mode")

// Sink receives the objects of one frame and assembles the output
// representation.
type Sink interface {
	// Begin starts a new frame of the given extent.
	Begin(width, height int) error
	// Add places one object. Objects arrive in detection order.
	Add(obj *Object) error
	// Finish returns the assembled output for the frame.
	Finish() (*Output, error)
}

// NewSink creates the sink for an output mode.
//
// Arguments:
//   - mode: ModeLabel or ModeInstance.
//   - merge: The label merge policy, ignored in instance mode.
//   - logger: Receives diagnostics; nil disables logging.
//
// Returns:
//   - Sink: A fresh sink owned by the caller for one frame.
//   - error: ErrUnknownMode for unsupported values.
func NewSink(mode OutputMode, merge MergePolicy, logger *zap.Logger) (Sink, error) {
	switch mode {
	case ModeLabel:
		return NewLabelSink(merge, logger)
	case ModeInstance:
		return NewInstanceSink(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "mode %q", mode)
	}
}

// frame holds the state shared by both sinks.
type frame struct {
	width        int
	height       int
	started      bool
	measurements []Measurement
}

func (f *frame) begin(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(images.ErrEmptyExtent, "frame %dx%d", width, height)
	}
	*f = frame{width: width, height: height, started: true}
	return nil
}

func (f *frame) check(obj *Object) error {
	if !f.started {
		return errors.New("postprocess: Add called before Begin")
	}
	if obj == nil || obj.Mask == nil {
		return errors.New("postprocess: object without mask")
	}
	return nil
}

// placement returns the visible region of an object in the frame.
func (f *frame) placement(obj *Object) image.Rectangle {
	return obj.Mask.Bounds().Intersect(image.Rect(0, 0, f.width, f.height))
}

// LabelSink composites objects into a single label image.
type LabelSink struct {
	frame
	merge      MergePolicy
	logger     *zap.Logger
	labels     *images.LabelImage
	confidence []float32
	placed     []Detection
}

// NewLabelSink creates a label-mode sink.
func NewLabelSink(merge MergePolicy, logger *zap.Logger) (*LabelSink, error) {
	switch merge {
	case MergeLastWriter, MergeHighestConfidence, MergeBitwiseOr:
	case "":
		merge = MergeLastWriter
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "merge policy %q", merge)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelSink{merge: merge, logger: logger}, nil
}

// Begin implements Sink.
func (s *LabelSink) Begin(width, height int) error {
	s.labels = nil
	s.confidence = nil
	s.placed = nil
	return s.frame.begin(width, height)
}

// Add implements Sink. The label image is allocated at the first object.
func (s *LabelSink) Add(obj *Object) error {
	if err := s.check(obj); err != nil {
		return err
	}
	if err := s.ensureLabels(); err != nil {
		return err
	}
	if obj.ClassID+1 > 0xFFFF {
		return errors.Errorf("postprocess: class id %d does not fit a label image", obj.ClassID)
	}
	value := uint16(obj.ClassID + 1)

	if s.merge == MergeBitwiseOr {
		s.warnOverlaps(obj.Detection)
	}

	region := s.placement(obj)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			if obj.Mask.GrayAt(x, y).Y == 0 {
				continue
			}
			s.paint(x, y, value, obj.Confidence)
		}
	}

	s.placed = append(s.placed, obj.Detection)
	s.measurements = append(s.measurements, newMeasurement(obj))
	return nil
}

func (s *LabelSink) paint(x, y int, value uint16, confidence float32) {
	switch s.merge {
	case MergeBitwiseOr:
		s.labels.Set(x, y, s.labels.At(x, y)|value)
	case MergeHighestConfidence:
		i := y*s.width + x
		if s.labels.At(x, y) == 0 || confidence > s.confidence[i] {
			s.labels.Set(x, y, value)
			s.confidence[i] = confidence
		}
	default:
		s.labels.Set(x, y, value)
	}
}

// warnOverlaps reports overlaps that the OR merge turns into invalid labels.
func (s *LabelSink) warnOverlaps(d Detection) {
	for _, prev := range s.placed {
		if prev.ClassID == d.ClassID {
			continue
		}
		if iou := images.CalculateIoU(prev.Box, d.Box); iou > 0 {
			s.logger.Warn("bitwise-or merge of overlapping classes",
				zap.Int("detection", d.Index),
				zap.Int("previous", prev.Index),
				zap.Float32("iou", iou),
				zap.String("labels", fmt.Sprintf("%d|%d", prev.ClassID+1, d.ClassID+1)))
		}
	}
}

func (s *LabelSink) ensureLabels() error {
	if s.labels != nil {
		return nil
	}
	labels, err := images.NewLabelImage(s.width, s.height)
	if err != nil {
		return err
	}
	s.labels = labels
	if s.merge == MergeHighestConfidence {
		s.confidence = make([]float32, s.width*s.height)
	}
	return nil
}

// Finish implements Sink. A frame without objects yields an all-background
// label image.
func (s *LabelSink) Finish() (*Output, error) {
	if !s.started {
		return nil, errors.New("postprocess: Finish called before Begin")
	}
	if err := s.ensureLabels(); err != nil {
		return nil, err
	}
	return &Output{
		Mode:         ModeLabel,
		Width:        s.width,
		Height:       s.height,
		Labels:       s.labels,
		Measurements: s.measurements,
	}, nil
}

// InstanceSink keeps every object as an independent full-frame mask.
type InstanceSink struct {
	frame
	instances []Instance
}

// NewInstanceSink creates an instance-mode sink.
func NewInstanceSink() *InstanceSink {
	return &InstanceSink{}
}

// Begin implements Sink.
func (s *InstanceSink) Begin(width, height int) error {
	s.instances = nil
	return s.frame.begin(width, height)
}

// Add implements Sink. The box-local mask is copied into a zeroed full-frame
// mask at the box offset; pixels outside the frame are dropped.
func (s *InstanceSink) Add(obj *Object) error {
	if err := s.check(obj); err != nil {
		return err
	}

	full := image.NewGray(image.Rect(0, 0, s.width, s.height))
	region := s.placement(obj)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		src := obj.Mask.Pix[obj.Mask.PixOffset(region.Min.X, y):obj.Mask.PixOffset(region.Max.X, y)]
		copy(full.Pix[full.PixOffset(region.Min.X, y):], src)
	}

	s.instances = append(s.instances, Instance{
		ID:         obj.ID,
		ClassID:    obj.ClassID,
		ClassName:  obj.ClassName,
		Confidence: obj.Confidence,
		Box:        obj.Box,
		Mask:       full,
	})
	s.measurements = append(s.measurements, newMeasurement(obj))
	return nil
}

// Finish implements Sink.
func (s *InstanceSink) Finish() (*Output, error) {
	if !s.started {
		return nil, errors.New("postprocess: Finish called before Begin")
	}
	instances := s.instances
	if instances == nil {
		instances = []Instance{}
	}
	return &Output{
		Mode:         ModeInstance,
		Width:        s.width,
		Height:       s.height,
		Instances:    instances,
		Measurements: s.measurements,
	}, nil
}
