// Package models - registry for models.
package models

import (
	"fmt"

	"github.com/nvr-ai/go-segment/models/maskrcnn"
	"github.com/nvr-ai/go-segment/models/model"
)

// NewModel creates a new segmentation model instance based on the specified
// model name.
//
// Arguments:
//   - args: Configuration parameters specifying the model and its collaborators.
//
// Returns:
//   - model.Model: A fully configured model instance implementing the Model interface.
//   - error: An error if the model name is unsupported or the parameters are invalid.
//
// Example:
//
// ```go
//
//	classes, err := models.LoadClassNamesFile("/models/coco_names.txt")
//	if err != nil {
//	    log.Fatalf("Failed to load class names: %v", err)
//	}
//
//	m, err := models.NewModel(model.NewModelArgs{
//	    Name:    model.ModelNameMaskRCNN,
//	    Params:  model.DefaultParams(),
//	    Classes: classes,
//	})
//	if err != nil {
//	    log.Fatalf("Failed to create segmentation model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.ModelNameMaskRCNN, "":
		m, err := maskrcnn.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
