package util

import (
	"image"
	_ "image/jpeg" // register decoders for image.DecodeConfig
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-segment/inference"
	"github.com/pkg/errors"
)

const (
	detectionsSuffix = ".detections.npy"
	masksSuffix      = ".masks.npy"
)

// FrameFiles represents the dumped forward-pass output of one frame.
type FrameFiles struct {
	// Frame is the frame number parsed from the file names.
	Frame int
	// Detections is the path to frame-<n>.detections.npy.
	Detections string
	// Masks is the path to frame-<n>.masks.npy.
	Masks string
	// Image is the path to the source frame, empty when it was not dumped.
	Image string
}

// LoadDirectoryFrames collects the frames of a directory laid out as
//
//	frame-<n>.detections.npy
//	frame-<n>.masks.npy
//	frame-<n>.(jpg|jpeg|png)   optional source image
//
// Arguments:
// - dir: Directory path containing the dumps.
//
// Returns:
// - []FrameFiles: Frames sorted by frame number.
// - error: Error if the directory cannot be read, a frame number cannot be
// parsed or a frame lacks one of its tensors.
func LoadDirectoryFrames(dir string) ([]FrameFiles, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byFrame := map[int]*FrameFiles{}
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "frame-") {
			continue
		}

		name := file.Name()
		path := filepath.Join(dir, name)

		var stem string
		var set func(*FrameFiles)
		switch {
		case strings.HasSuffix(name, detectionsSuffix):
			stem = strings.TrimSuffix(name, detectionsSuffix)
			set = func(f *FrameFiles) { f.Detections = path }
		case strings.HasSuffix(name, masksSuffix):
			stem = strings.TrimSuffix(name, masksSuffix)
			set = func(f *FrameFiles) { f.Masks = path }
		default:
			ext := filepath.Ext(name)
			switch strings.ToLower(ext) {
			case ".jpg", ".jpeg", ".png":
				stem = strings.TrimSuffix(name, ext)
				set = func(f *FrameFiles) { f.Image = path }
			default:
				continue
			}
		}

		frame, err := strconv.Atoi(strings.TrimPrefix(stem, "frame-"))
		if err != nil {
			return nil, errors.Wrapf(err, "frame number of %s", name)
		}
		f, ok := byFrame[frame]
		if !ok {
			f = &FrameFiles{Frame: frame}
			byFrame[frame] = f
		}
		set(f)
	}

	frames := make([]FrameFiles, 0, len(byFrame))
	for _, f := range byFrame {
		if f.Detections == "" || f.Masks == "" {
			return nil, errors.Errorf("frame %d is missing its detection or mask tensor", f.Frame)
		}
		frames = append(frames, *f)
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}

// Tensors reads both tensors of the frame.
//
// Returns:
// - *inference.DetectionTensor: The detection tensor.
// - *inference.MaskTensor: The soft mask tensor.
// - error: Error if a file cannot be read or holds a malformed tensor.
func (f FrameFiles) Tensors() (*inference.DetectionTensor, *inference.MaskTensor, error) {
	df, err := os.Open(f.Detections)
	if err != nil {
		return nil, nil, err
	}
	defer df.Close()

	detections, err := inference.ReadDetectionTensor(df)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "frame %d", f.Frame)
	}

	mf, err := os.Open(f.Masks)
	if err != nil {
		return nil, nil, err
	}
	defer mf.Close()

	masks, err := inference.ReadMaskTensor(mf)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "frame %d", f.Frame)
	}

	return detections, masks, nil
}

// ImageExtent reads the width and height of an encoded image without
// decoding its pixels.
func ImageExtent(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decode %s", path)
	}
	return cfg.Width, cfg.Height, nil
}
