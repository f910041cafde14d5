package annotate

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Default directories of the annotation command.
const (
	DefaultBaseDir = "/usr/src/tensorrt/data/ultraface/"
	DefaultOutDir  = "./detections/"
)

// Config is the complete input of a single annotation run.
type Config struct {
	Image       string   // The image name, resolved against BaseDir. Also the output name.
	BaseDir     string   // The input directory.
	OutDir      string   // The output directory.
	Box         []string // The box tokens x0, y0, x1, y1.
	Style       Style    // Outline color and thickness.
	JPEGQuality int      // The quality for JPEG outputs (zero for the default).
}

// DefaultConfig returns a Config with the default directories and style.
func DefaultConfig() Config {
	return Config{
		BaseDir:     DefaultBaseDir,
		OutDir:      DefaultOutDir,
		Style:       DefaultStyle(),
		JPEGQuality: DefaultJPEGQuality,
	}
}

// InputPath is the path of the source image.
func (c Config) InputPath() string {
	return filepath.Join(c.BaseDir, c.Image)
}

// OutputPath is the path of the annotated image. It keeps the file name of the input.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutDir, c.Image)
}

// Validate checks the arguments that do not require file access.
func (c Config) Validate() (NormalizedBox, error) {
	if c.Image == "" {
		return NormalizedBox{}, &ArgumentError{Name: "image", Reason: "missing"}
	}
	if err := c.Style.Validate(); err != nil {
		return NormalizedBox{}, err
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		return NormalizedBox{}, &ArgumentError{
			Name:   "jpeg quality",
			Value:  strconv.Itoa(c.JPEGQuality),
			Reason: "must be in [0, 100], 0 for the default",
		}
	}
	return ParseBox(c.Box)
}

// Result describes the output of Run.
type Result struct {
	InputPath  string
	OutputPath string
	Box        NormalizedBox
	Pixels     PixelBox
	Width      int
	Height     int
}

// Run annotates the image described by cfg and writes the result to cfg.OutputPath().
//
// The box is validated before the image is read. Returns an *ArgumentError for invalid arguments
// and a *DecodeError if the input cannot be decoded.
func Run(cfg Config) (Result, error) {
	box, err := cfg.Validate()
	if err != nil {
		return Result{}, err
	}

	res := Result{InputPath: cfg.InputPath(), OutputPath: cfg.OutputPath(), Box: box}

	img, _, err := LoadImage(res.InputPath)
	if err != nil {
		return Result{}, err
	}

	annotated, pb := Annotate(img, box, cfg.Style)
	res.Pixels = pb
	res.Width = annotated.Bounds().Dx()
	res.Height = annotated.Bounds().Dy()

	if err := os.MkdirAll(filepath.Dir(res.OutputPath), 0755); err != nil {
		return Result{}, errors.Wrap(err, "cannot create the output directory")
	}
	if err := SaveImage(res.OutputPath, annotated, cfg.JPEGQuality); err != nil {
		return Result{}, err
	}

	return res, nil
}
