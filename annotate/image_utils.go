package annotate

import (
	"bytes"
	"image"
	_ "image/gif"  // Register the GIF decoder.
	_ "image/jpeg" // Register the JPEG decoder.
	_ "image/png"  // Register the PNG decoder.
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register the BMP decoder.
	_ "golang.org/x/image/tiff" // Register the TIFF decoder.
	_ "golang.org/x/image/webp" // Register the WebP decoder.
)

// DefaultJPEGQuality is the quality used for JPEG outputs unless configured otherwise.
const DefaultJPEGQuality = 95

// FormatFromName returns the output format for a file name, file extension (with or without the
// dot) or decoder format name such as "jpeg".
func FormatFromName(name string) (imaging.Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		ext = name
	}
	return imaging.FormatFromExtension(strings.ToLower(ext))
}

// MimeType returns the MIME type for the format.
func MimeType(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	}
	return "application/octet-stream"
}

// DecodeImage decodes data, applying the EXIF orientation if present. It returns the image and
// the name of the decoder format (e.g. "jpeg", "png", "webp").
//
// Any failure is returned as a *DecodeError naming source.
func DecodeImage(data []byte, source string) (img image.Image, format string, err error) {
	// Detect the format first, imaging.Decode does not report it.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Source: source, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", &DecodeError{Source: source, Err: errors.New("empty image")}
	}

	img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", &DecodeError{Source: source, Err: err}
	}

	return img, format, nil
}

// LoadImage reads and decodes the image at path. Any failure, including a missing file, is
// returned as a *DecodeError.
func LoadImage(path string) (img image.Image, format string, err error) {
	data, err := readFile(path)
	if err != nil {
		return nil, "", &DecodeError{Source: path, Err: err}
	}

	return DecodeImage(data, path)
}

// DecodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func DecodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", &DecodeError{Source: path, Err: err}
	}
	defer file.Close()

	config, format, err = image.DecodeConfig(file)
	if err != nil {
		return image.Config{}, "", &DecodeError{Source: path, Err: err}
	}
	return config, format, nil
}

// EncodeImage writes img to w in the given format. jpegQuality only applies to JPEG outputs; zero
// selects DefaultJPEGQuality.
func EncodeImage(w io.Writer, img image.Image, format imaging.Format, jpegQuality int) error {
	if jpegQuality <= 0 {
		jpegQuality = DefaultJPEGQuality
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(jpegQuality))
}

// SaveImage saves the image to path, encoding it according to the file extension of path.
func SaveImage(path string, img image.Image, jpegQuality int) (err error) {
	format, err := FormatFromName(path)
	if err != nil {
		return errors.Wrapf(err, "cannot encode %q", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer CloseWithErrCheck(f, &err)

	if err := EncodeImage(f, img, format, jpegQuality); err != nil {
		return errors.Wrapf(err, "cannot encode %q", path)
	}
	return nil
}

// readFile reads the whole file at path.
func readFile(path string) (data []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer CloseWithErrCheck(f, &err)

	return io.ReadAll(f)
}

// CloseWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func CloseWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
