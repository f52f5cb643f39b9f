// Package models - Class-name tables for the supported model families.
package models

// ModelFamily is the family of models, which fixes the labelmap a network emits.
type ModelFamily string

const (
	// ModelFamilyMaskRCNN is the TensorFlow Mask R-CNN family (90 zero-based COCO ids).
	ModelFamilyMaskRCNN ModelFamily = "maskrcnn"
	// ModelFamilyCOCO is the COCO model family.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyVOC is the Pascal VOC model family.
	ModelFamilyVOC ModelFamily = "voc"
)
