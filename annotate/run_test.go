package annotate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunConfig(t *testing.T) Config {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, SaveImage(filepath.Join(base, "frame.png"), newTestImage(t, 200, 100), 0))

	cfg := DefaultConfig()
	cfg.Image = "frame.png"
	cfg.BaseDir = base
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	cfg.Box = []string{"0.1", "0.2", "0.6", "0.8"}
	return cfg
}

func TestRun(t *testing.T) {
	cfg := newRunConfig(t)

	res, err := Run(cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.OutDir, "frame.png"), res.OutputPath)
	assert.Equal(t, PixelBox{20, 20, 120, 80}, res.Pixels)
	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 100, res.Height)

	entries, err := os.ReadDir(cfg.OutDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	out, format, err := LoadImage(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 200, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())

	r, g, b, _ := out.At(20, 20).RGBA()
	assert.Equal(t, [3]uint32{255, 128, 0}, [3]uint32{r >> 8, g >> 8, b >> 8})
	r, g, b, _ = out.At(70, 50).RGBA()
	assert.Equal(t, [3]uint32{10, 20, 30}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestRunJPEG(t *testing.T) {
	cfg := newRunConfig(t)
	require.NoError(t, SaveImage(filepath.Join(cfg.BaseDir, "frame.jpg"), newTestImage(t, 64, 48), 0))
	cfg.Image = "frame.jpg"

	res, err := Run(cfg)
	require.NoError(t, err)

	_, format, err := DecodeImageConfig(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestRunErrors(t *testing.T) {
	t.Run("missing image", func(t *testing.T) {
		cfg := newRunConfig(t)
		cfg.Image = "missing.jpg"

		_, err := Run(cfg)

		var decErr *DecodeError
		assert.True(t, errors.As(err, &decErr), "expected *DecodeError, got %v", err)
	})

	argErrors := map[string]func(*Config){
		"three values":  func(c *Config) { c.Box = []string{"0.1", "0.2", "0.6"} },
		"not a number":  func(c *Config) { c.Box = []string{"abc", "0.2", "0.6", "0.8"} },
		"no image":      func(c *Config) { c.Image = "" },
		"bad quality":   func(c *Config) { c.JPEGQuality = 101 },
		"neg quality":   func(c *Config) { c.JPEGQuality = -1 },
		"bad thickness": func(c *Config) { c.Style.Thickness = -2 },
	}
	for name, modify := range argErrors {
		t.Run(name, func(t *testing.T) {
			cfg := newRunConfig(t)
			modify(&cfg)

			_, err := Run(cfg)

			var argErr *ArgumentError
			assert.True(t, errors.As(err, &argErr), "expected *ArgumentError, got %v", err)
			_, statErr := os.Stat(cfg.OutDir)
			assert.True(t, os.IsNotExist(statErr), "no output expected")
		})
	}

	t.Run("quality message", func(t *testing.T) {
		cfg := newRunConfig(t)
		cfg.JPEGQuality = 101
		_, err := cfg.Validate()
		assert.EqualError(t, err, `invalid jpeg quality "101": must be in [0, 100], 0 for the default`)

		cfg.JPEGQuality = 0
		_, err = cfg.Validate()
		assert.NoError(t, err, "zero selects the default")
	})

	t.Run("bad box with missing image", func(t *testing.T) {
		cfg := newRunConfig(t)
		cfg.Image = "missing.jpg"
		cfg.Box = []string{"0.1"}

		_, err := Run(cfg)

		var argErr *ArgumentError
		assert.True(t, errors.As(err, &argErr), "the box is checked first, got %v", err)
	})
}
