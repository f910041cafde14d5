// Package config loads the server configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/foghegehog/inference-server/detection"
	"github.com/foghegehog/inference-server/store"
	"github.com/foghegehog/inference-server/stream"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Addr      string    `yaml:"addr"`
	Release   bool      `yaml:"release"`
	LogLevel  string    `yaml:"log_level"`
	SentryDSN string    `yaml:"sentry_dsn"`
	BaseDir   string    `yaml:"base_dir"` // Root of the streamed frame directories and documents.
	Stream    Stream    `yaml:"stream"`
	Detection Detection `yaml:"detection"`
	Redis     Redis     `yaml:"redis"`
}

// Stream configures the MJPEG sessions.
type Stream struct {
	FramePause  time.Duration `yaml:"frame_pause"`
	JPEGQuality int           `yaml:"jpeg_quality"`
	Width       int           `yaml:"width"`
	MaxFrames   int           `yaml:"max_frames"`
	SkipEmpty   bool          `yaml:"skip_empty"`
	ShowScores  bool          `yaml:"show_scores"`
	Thickness   int           `yaml:"thickness"`
	Color       string        `yaml:"color"` // R,G,B
}

// Detection configures how the detections of a frame are found.
type Detection struct {
	Format     string  `yaml:"format"` // Sidecar format: yaml, kitti or aws.
	Threshold  float64 `yaml:"threshold"`
	IoU        float64 `yaml:"iou"`
	ClassIndex int     `yaml:"class_index"`
	Label      string  `yaml:"label"`
}

// Redis configures the result store. Results are kept in memory if Address is empty.
type Redis struct {
	Address        string        `yaml:"address"`
	MaxConnections int           `yaml:"max_connections"`
	TTL            time.Duration `yaml:"ttl"`
}

// Default returns the default configuration.
func Default() Config {
	p := detection.DefaultParams()
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		BaseDir:  annotate.DefaultBaseDir,
		Stream: Stream{
			FramePause:  stream.DefaultFramePause,
			JPEGQuality: annotate.DefaultJPEGQuality,
			SkipEmpty:   true,
			Thickness:   stream.DefaultThickness,
			Color:       annotate.FormatColor(stream.DefaultColor),
		},
		Detection: Detection{
			Format:     string(detection.FormatYAML),
			Threshold:  p.Threshold,
			IoU:        p.IoU,
			ClassIndex: p.ClassIndex,
			Label:      p.Label,
		},
		Redis: Redis{
			MaxConnections: 50,
			TTL:            store.DefaultTTL,
		},
	}
}

// Load reads the configuration at path. Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "cannot read config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "cannot parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %q", path)
	}
	return cfg, nil
}

// Validate checks all values.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Stream.Options(); err != nil {
		return err
	}
	if _, err := c.Detection.Source(); err != nil {
		return err
	}
	if c.Redis.MaxConnections < 0 {
		return errors.Errorf("invalid redis max_connections %d", c.Redis.MaxConnections)
	}
	return nil
}

// Level is the parsed log level.
func (c Config) Level() (log.Level, error) {
	return log.ParseLevel(c.LogLevel)
}

// Options converts the configuration into session options.
func (s Stream) Options() (stream.Options, error) {
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		return stream.Options{}, errors.Errorf("invalid jpeg_quality %d", s.JPEGQuality)
	}
	if s.Width < 0 || s.MaxFrames < 0 || s.FramePause < 0 {
		return stream.Options{}, errors.New("width, max_frames and frame_pause must not be negative")
	}
	c, err := annotate.ParseColor(s.Color)
	if err != nil {
		return stream.Options{}, err
	}
	style := annotate.Style{Color: c, Thickness: s.Thickness}
	if err := style.Validate(); err != nil {
		return stream.Options{}, err
	}

	return stream.Options{
		FramePause:  s.FramePause,
		JPEGQuality: s.JPEGQuality,
		Width:       s.Width,
		MaxFrames:   s.MaxFrames,
		SkipEmpty:   s.SkipEmpty,
		ShowScores:  s.ShowScores,
		Style:       style,
	}, nil
}

// Source returns the sidecar source for the configured format and parameters.
func (d Detection) Source() (*detection.SidecarSource, error) {
	format, err := detection.ParseFormat(d.Format)
	if err != nil {
		return nil, err
	}
	if d.IoU < 0 || d.IoU > 1 {
		return nil, errors.Errorf("invalid iou %v", d.IoU)
	}
	if d.ClassIndex < 0 {
		return nil, errors.Errorf("invalid class_index %d", d.ClassIndex)
	}

	src := detection.NewSidecarSource(format)
	src.Params = detection.Params{
		ClassIndex: d.ClassIndex,
		Threshold:  d.Threshold,
		IoU:        d.IoU,
		Label:      d.Label,
	}
	return src, nil
}
