// Package postprocess - Detection records, object masks and the compositor
// that places them into label images or instance lists.
package postprocess

import (
	"image"
	"image/color"

	"github.com/nvr-ai/go-segment/images"
)

// Detection is one accepted row of the detection tensor, in pixel units.
type Detection struct {
	// Index is the row of the detection tensor, also the mask tensor row.
	Index int
	// ClassID is the class the network assigned.
	ClassID int
	// Confidence is the detection score, strictly above the decode threshold.
	Confidence float32
	// Box is the inclusive pixel box; it is not clamped to the frame.
	Box images.Box
}

// Object is a detection whose soft mask has been resized and binarized.
type Object struct {
	Detection
	// ID is the identity assigned to the object for measurements.
	ID string
	// ClassName is the resolved class label.
	ClassName string
	// Mask is the box-local binary mask; its bounds are Box.Rect() clipped
	// to the frame, empty when the box lies outside it.
	Mask *image.Gray
	// Area is the number of foreground pixels in Mask.
	Area int
	// MaskScore is the mean soft score over the foreground pixels.
	MaskScore float64
}

// Instance is one entry of an instance list: an independent full-frame mask.
type Instance struct {
	ID         string      `json:"id" msgpack:"id"`
	ClassID    int         `json:"class_id" msgpack:"class_id"`
	ClassName  string      `json:"class_name" msgpack:"class_name"`
	Confidence float32     `json:"confidence" msgpack:"confidence"`
	Box        images.Box  `json:"box" msgpack:"box"`
	Mask       *image.Gray `json:"-" msgpack:"-"`
}

// Measurement is a per-object result row consumed by measurement tables.
type Measurement struct {
	ObjectID   string     `json:"object_id" msgpack:"object_id"`
	ClassID    int        `json:"class_id" msgpack:"class_id"`
	ClassName  string     `json:"class_name" msgpack:"class_name"`
	Confidence float32    `json:"confidence" msgpack:"confidence"`
	Box        images.Box `json:"box" msgpack:"box"`
	Area       int        `json:"area" msgpack:"area"`
	MaskScore  float64    `json:"mask_score" msgpack:"mask_score"`
}

// Output is the complete result of processing one image.
type Output struct {
	// Mode is the representation that was produced.
	Mode OutputMode `json:"mode" msgpack:"mode"`
	// Width is the frame width.
	Width int `json:"width" msgpack:"width"`
	// Height is the frame height.
	Height int `json:"height" msgpack:"height"`
	// Labels is set in label mode.
	Labels *images.LabelImage `json:"-" msgpack:"-"`
	// Instances is set in instance mode, in detection order.
	Instances []Instance `json:"instances,omitempty" msgpack:"instances,omitempty"`
	// Measurements holds one row per accepted object, in detection order.
	Measurements []Measurement `json:"measurements" msgpack:"measurements"`
	// Palette is a snapshot of the class colors, index = class id + 1.
	Palette []color.RGBA `json:"-" msgpack:"-"`
}

func newMeasurement(obj *Object) Measurement {
	return Measurement{
		ObjectID:   obj.ID,
		ClassID:    obj.ClassID,
		ClassName:  obj.ClassName,
		Confidence: obj.Confidence,
		Box:        obj.Box,
		Area:       obj.Area,
		MaskScore:  obj.MaskScore,
	}
}
