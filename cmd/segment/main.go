// Command segment decodes dumped Mask R-CNN outputs into label images,
// instance masks, overlays and a measurement file.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-segment/config"
	"github.com/nvr-ai/go-segment/models"
	"github.com/nvr-ai/go-segment/models/model"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/nvr-ai/go-segment/render"
	"github.com/nvr-ai/go-segment/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	// DefaultInputDir is the default directory of frame dumps.
	DefaultInputDir = "frames"
	// DefaultPreviewSize bounds the preview thumbnails.
	DefaultPreviewSize = 320
)

func main() {
	var (
		configPath  string
		inputDir    string
		outputDir   string
		format      string
		width       int
		height      int
		overlay     bool
		previewSize uint
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&inputDir, "input", DefaultInputDir, "Directory of frame-<n>.detections.npy / frame-<n>.masks.npy dumps")
	flag.StringVar(&outputDir, "output-dir", "", "Output directory (overrides output.dir)")
	flag.StringVar(&format, "format", "", "Measurement file format: json or msgpack (overrides output.format)")
	flag.IntVar(&width, "width", 0, "Source width for frames without a dumped image")
	flag.IntVar(&height, "height", 0, "Source height for frames without a dumped image")
	flag.BoolVar(&overlay, "overlay", true, "Draw masks, boxes and captions onto dumped source images")
	flag.UintVar(&previewSize, "preview", DefaultPreviewSize, "Preview thumbnail bound in pixels, 0 disables")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := util.NewLogger(cfg.Log.Mode)
	if err != nil {
		log.Fatal(err)
	}
	defer util.Sync(logger)

	r := runner{
		cfg:         cfg,
		logger:      logger,
		width:       width,
		height:      height,
		overlay:     overlay,
		previewSize: previewSize,
	}
	if err := r.run(inputDir); err != nil {
		logger.Fatal("segmentation failed", zap.Error(err))
	}
}

type runner struct {
	cfg         *config.Config
	logger      *zap.Logger
	width       int
	height      int
	overlay     bool
	previewSize uint
}

func (r *runner) run(inputDir string) error {
	classes, err := r.cfg.ClassNames()
	if err != nil {
		return err
	}

	m, err := models.NewModel(model.NewModelArgs{
		Name:    model.Name(r.cfg.Model.Name),
		Params:  r.cfg.Params(),
		Classes: classes,
		Palette: r.cfg.Palette(),
		Resizer: r.cfg.Resizer(),
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}

	frames, err := util.LoadDirectoryFrames(inputDir)
	if err != nil {
		return errors.Wrap(err, "load frames")
	}
	if err := os.MkdirAll(r.cfg.Output.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	r.logger.Info("processing frames",
		zap.String("input", inputDir),
		zap.Int("frames", len(frames)),
		zap.String("mode", r.cfg.Model.OutputMode),
		zap.Int("classes", classes.Len()))

	size := r.cfg.InputSize()
	results := make([]FrameResult, 0, len(frames))
	for _, frame := range frames {
		result, err := r.frame(m, frame, size.Side())
		if err != nil {
			return errors.Wrapf(err, "frame %d", frame.Frame)
		}
		results = append(results, result)
		size = size.Next()
	}

	path := filepath.Join(r.cfg.Output.Dir, "results."+r.cfg.Output.Format)
	if err := WriteResultsFile(path, r.cfg.Output.Format, results); err != nil {
		return err
	}

	r.logger.Info("wrote results", zap.String("path", path), zap.Int("frames", len(results)))
	return nil
}

func (r *runner) frame(m model.Model, frame util.FrameFiles, inputSide int) (FrameResult, error) {
	detections, masks, err := frame.Tensors()
	if err != nil {
		return FrameResult{}, err
	}

	width, height := r.width, r.height
	if frame.Image != "" {
		width, height, err = util.ImageExtent(frame.Image)
		if err != nil {
			return FrameResult{}, err
		}
	}

	out, err := m.Process(model.Input{
		Detections: detections,
		Masks:      masks,
		Width:      width,
		Height:     height,
	})
	if err != nil {
		return FrameResult{}, err
	}

	base := filepath.Join(r.cfg.Output.Dir, fmt.Sprintf("frame-%d", frame.Frame))
	colored := render.Colorize(out)
	if err := writePNG(base+".color.png", colored); err != nil {
		return FrameResult{}, err
	}
	if out.Labels != nil {
		if err := writePNG(base+".labels.png", out.Labels.Gray16()); err != nil {
			return FrameResult{}, err
		}
	}
	for i, inst := range out.Instances {
		if err := writePNG(fmt.Sprintf("%s.instance-%d.png", base, i), scaleMask(inst.Mask)); err != nil {
			return FrameResult{}, err
		}
	}
	if r.previewSize > 0 {
		if err := writePNG(base+".preview.png", render.Preview(colored, r.previewSize, r.previewSize)); err != nil {
			return FrameResult{}, err
		}
	}
	if r.overlay && frame.Image != "" {
		if err := r.drawOverlay(frame.Image, base+".overlay.png", out); err != nil {
			return FrameResult{}, err
		}
	}

	r.logger.Info("frame done",
		zap.Int("frame", frame.Frame),
		zap.Int("objects", len(out.Measurements)),
		zap.Int("input_side", inputSide))

	return NewFrameResult(frame.Frame, inputSide, out), nil
}

func (r *runner) drawOverlay(src, dst string, out *postprocess.Output) error {
	img := gocv.IMRead(src, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return errors.Errorf("read image %s", src)
	}

	if err := render.Overlay(&img, out, render.DefaultOverlayOptions()); err != nil {
		return err
	}
	if !gocv.IMWrite(dst, img) {
		return errors.Errorf("write image %s", dst)
	}
	return nil
}

// scaleMask maps a 0/1 mask to 0/255 so it is visible in image viewers.
func scaleMask(mask *image.Gray) *image.Gray {
	out := image.NewGray(mask.Bounds())
	for i, v := range mask.Pix {
		if v != 0 {
			out.Pix[i] = 255
		}
	}
	return out
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}
