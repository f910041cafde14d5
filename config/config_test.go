package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foghegehog/inference-server/detection"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.Stream.Options()
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, opts.FramePause)
	assert.Equal(t, 95, opts.JPEGQuality)
	assert.True(t, opts.SkipEmpty)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, opts.Style.Color)
	assert.Equal(t, 1, opts.Style.Thickness)

	src, err := cfg.Detection.Source()
	require.NoError(t, err)
	assert.Equal(t, detection.FormatYAML, src.Format)
	assert.Equal(t, detection.DefaultParams(), src.Params)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
log_level: debug
base_dir: /data/frames
stream:
  frame_pause: 100ms
  width: 320
  skip_empty: false
  color: "0,255,0"
detection:
  format: kitti
  threshold: 0.5
redis:
  address: "localhost:6379"
  ttl: 10m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/data/frames", cfg.BaseDir)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, level)

	assert.Equal(t, 100*time.Millisecond, cfg.Stream.FramePause)
	assert.Equal(t, 320, cfg.Stream.Width)
	assert.False(t, cfg.Stream.SkipEmpty)
	assert.Equal(t, 95, cfg.Stream.JPEGQuality, "default kept")

	assert.Equal(t, "kitti", cfg.Detection.Format)
	assert.Equal(t, 0.5, cfg.Detection.Threshold)
	assert.Equal(t, 0.5, cfg.Detection.IoU, "default kept")

	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 50, cfg.Redis.MaxConnections)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	invalid := map[string]string{
		"syntax":    "stream: [",
		"quality":   "stream:\n  jpeg_quality: 0\n",
		"color":     "stream:\n  color: red\n",
		"thickness": "stream:\n  thickness: -1\n",
		"format":    "detection:\n  format: sloth\n",
		"iou":       "detection:\n  iou: 2\n",
		"level":     "log_level: loud\n",
		"duration":  "stream:\n  frame_pause: soon\n",
	}
	for name, content := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
