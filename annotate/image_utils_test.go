package annotate

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadImage(filepath.Join(dir, "missing.jpg"))

		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr), "expected *DecodeError, got %v", err)
		assert.True(t, os.IsNotExist(decErr.Err))
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(dir, "text.png")
		require.NoError(t, os.WriteFile(path, []byte("this is not an image"), 0644))

		_, _, err := LoadImage(path)

		var decErr *DecodeError
		assert.True(t, errors.As(err, &decErr), "expected *DecodeError, got %v", err)
	})
}

func TestSaveAndLoadImage(t *testing.T) {
	dir := t.TempDir()
	img := newTestImage(t, 30, 20)
	img.SetNRGBA(3, 4, DefaultColor)

	for _, name := range []string{"a.png", "b.PNG", "c.bmp", "d.tif", "e.gif"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveImage(path, img, 0))

			got, _, err := LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, img.Bounds(), got.Bounds())
		})
	}

	t.Run("lossless", func(t *testing.T) {
		path := filepath.Join(dir, "lossless.png")
		require.NoError(t, SaveImage(path, img, 0))

		got, format, err := LoadImage(path)
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, img.Pix, imaging.Clone(got).Pix)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		assert.Error(t, SaveImage(filepath.Join(dir, "x.webp"), img, 0))
		assert.Error(t, SaveImage(filepath.Join(dir, "noext"), img, 0))
	})
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, newTestImage(t, 8, 6)))

	img, format, err := DecodeImage(buf.Bytes(), "upload")
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, _, err = DecodeImage([]byte{1, 2, 3}, "upload")
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "upload", decErr.Source)
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    imaging.Format
		wantErr bool
	}{
		{"frame.jpg", imaging.JPEG, false},
		{"dir/frame.JPEG", imaging.JPEG, false},
		{".png", imaging.PNG, false},
		{"jpeg", imaging.JPEG, false},
		{"tiff", imaging.TIFF, false},
		{"frame.webp", 0, true},
		{"webp", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "image/png", MimeType(imaging.PNG))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseWithErrCheck(t *testing.T) {
	closeErr := errors.New("close failed")
	failing := closerFunc(func() error { return closeErr })

	var err error
	CloseWithErrCheck(failing, &err)
	assert.Equal(t, closeErr, err)

	first := errors.New("write failed")
	err = first
	CloseWithErrCheck(failing, &err)
	assert.Equal(t, first, err, "the first error is kept")

	err = nil
	CloseWithErrCheck(closerFunc(func() error { return nil }), &err)
	assert.NoError(t, err)
}
