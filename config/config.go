// Package config - YAML and environment configuration of the segmentation pipeline.
package config

import (
	"strings"

	"github.com/nvr-ai/go-segment/images"
	"github.com/nvr-ai/go-segment/models"
	"github.com/nvr-ai/go-segment/models/maskrcnn"
	"github.com/nvr-ai/go-segment/models/model"
	"github.com/nvr-ai/go-segment/models/postprocess"
	"github.com/nvr-ai/go-segment/palette"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SEGMENT_MODEL_CONFIDENCE.
const EnvPrefix = "SEGMENT"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Resizer backends.
const (
	ResizerBilinear = "bilinear"
	ResizerOpenCV   = "opencv"
)

// Output formats of the measurement file.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Palette PaletteConfig `mapstructure:"palette"`
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
}

type ModelConfig struct {
	Name          string    `mapstructure:"name"`
	Family        string    `mapstructure:"family"`
	Classes       string    `mapstructure:"classes"`
	Confidence    float32   `mapstructure:"confidence"`
	MaskThreshold float32   `mapstructure:"mask_threshold"`
	OutputMode    string    `mapstructure:"output_mode"`
	Merge         string    `mapstructure:"merge"`
	Resizer       string    `mapstructure:"resizer"`
	NMS           NMSConfig `mapstructure:"nms"`
}

type NMSConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	IoUThreshold float32 `mapstructure:"iou_threshold"`
	ClassAware   bool    `mapstructure:"class_aware"`
}

type PaletteConfig struct {
	Seed   uint64 `mapstructure:"seed"`
	Growth string `mapstructure:"growth"`
}

type InputConfig struct {
	Base    int  `mapstructure:"base"`
	Step    int  `mapstructure:"step"`
	Perturb bool `mapstructure:"perturb"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// Load reads a YAML configuration file on top of the defaults and applies
// SEGMENT_* environment overrides. An empty path loads defaults and
// environment only.
//
// Arguments:
//   - configPath: Path to a YAML file, or "".
//
// Returns:
//   - *Config: The validated configuration.
//   - error: If the file cannot be read or the result is invalid.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New loads config.yaml from the working directory, falling back to the
// defaults when it is missing or invalid.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	params := model.DefaultParams()

	v.SetDefault("model.name", string(model.ModelNameMaskRCNN))
	v.SetDefault("model.family", string(models.ModelFamilyMaskRCNN))
	v.SetDefault("model.classes", "")
	v.SetDefault("model.confidence", params.ConfidenceThreshold)
	v.SetDefault("model.mask_threshold", params.MaskThreshold)
	v.SetDefault("model.output_mode", string(params.OutputMode))
	v.SetDefault("model.merge", string(params.Merge))
	v.SetDefault("model.resizer", ResizerBilinear)
	v.SetDefault("model.nms.enabled", false)
	v.SetDefault("model.nms.iou_threshold", 0.5)
	v.SetDefault("model.nms.class_aware", true)

	v.SetDefault("palette.seed", palette.DefaultSeed)
	v.SetDefault("palette.growth", string(params.PaletteGrowth))

	v.SetDefault("input.base", maskrcnn.DefaultInputSide)
	v.SetDefault("input.step", maskrcnn.DefaultInputStep)
	v.SetDefault("input.perturb", false)

	v.SetDefault("output.dir", "./out")
	v.SetDefault("output.format", FormatJSON)

	v.SetDefault("log.mode", "debug")
}

// Default returns the configuration Load produces without a file or
// environment overrides.
func Default() *Config {
	params := model.DefaultParams()
	return &Config{
		Model: ModelConfig{
			Name:          string(model.ModelNameMaskRCNN),
			Family:        string(models.ModelFamilyMaskRCNN),
			Confidence:    params.ConfidenceThreshold,
			MaskThreshold: params.MaskThreshold,
			OutputMode:    string(params.OutputMode),
			Merge:         string(params.Merge),
			Resizer:       ResizerBilinear,
			NMS: NMSConfig{
				IoUThreshold: 0.5,
				ClassAware:   true,
			},
		},
		Palette: PaletteConfig{
			Seed:   palette.DefaultSeed,
			Growth: string(params.PaletteGrowth),
		},
		Input: InputConfig{
			Base: maskrcnn.DefaultInputSide,
			Step: maskrcnn.DefaultInputStep,
		},
		Output: OutputConfig{
			Dir:    "./out",
			Format: FormatJSON,
		},
		Log: LogConfig{
			Mode: "debug",
		},
	}
}

// Validate checks thresholds and enumerations.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	switch c.Model.Resizer {
	case ResizerBilinear, ResizerOpenCV:
	default:
		return errors.Wrapf(ErrInvalidConfig, "resizer %q", c.Model.Resizer)
	}
	switch c.Output.Format {
	case FormatJSON, FormatMsgpack:
	default:
		return errors.Wrapf(ErrInvalidConfig, "output format %q", c.Output.Format)
	}
	if c.Input.Base <= 0 || c.Input.Step < 0 || c.Input.Step >= c.Input.Base {
		return errors.Wrapf(ErrInvalidConfig, "input size %d step %d", c.Input.Base, c.Input.Step)
	}
	if c.Model.Classes == "" {
		if _, ok := models.LookupClassSet(models.ModelFamily(c.Model.Family)); !ok {
			return errors.Wrapf(ErrInvalidConfig, "model family %q", c.Model.Family)
		}
	}
	return nil
}

// Params returns the model parameters.
func (c *Config) Params() model.Params {
	p := model.Params{
		ConfidenceThreshold: c.Model.Confidence,
		MaskThreshold:       c.Model.MaskThreshold,
		OutputMode:          postprocess.OutputMode(c.Model.OutputMode),
		Merge:               postprocess.MergePolicy(c.Model.Merge),
		PaletteGrowth:       model.PaletteGrowth(c.Palette.Growth),
	}
	if c.Model.NMS.Enabled {
		p.NMS = &postprocess.NMSConfig{
			IoUThreshold: c.Model.NMS.IoUThreshold,
			ClassAware:   c.Model.NMS.ClassAware,
		}
	}
	return p
}

// InputSize returns the network input size toggle.
func (c *Config) InputSize() maskrcnn.InputSize {
	return maskrcnn.InputSize{
		Base:    c.Input.Base,
		Step:    c.Input.Step,
		Perturb: c.Input.Perturb,
		Sign:    1,
	}
}

// Resizer returns the configured soft mask resizer.
func (c *Config) Resizer() images.Resizer {
	if c.Model.Resizer == ResizerOpenCV {
		return images.CVResizer{}
	}
	return images.NewBilinearResizer()
}

// ClassNames returns the class table: the label file when one is set,
// the built-in table of the model family otherwise.
func (c *Config) ClassNames() (models.ClassNames, error) {
	if c.Model.Classes != "" {
		return models.LoadClassNamesFile(c.Model.Classes)
	}
	set, ok := models.LookupClassSet(models.ModelFamily(c.Model.Family))
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "model family %q", c.Model.Family)
	}
	return set.Names(), nil
}

// Palette returns a fresh palette seeded from the configuration.
func (c *Config) Palette() *palette.Palette {
	return palette.New(c.Palette.Seed)
}
