// Package frames provides readers that turn directories of images and PDF documents into
// sequences of frames.
package frames

import (
	"image"
	"io"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/pkg/errors"
)

// Frame is a single decoded image of a sequence.
type Frame struct {
	Index int         // Position in the sequence, starting at 0.
	Name  string      // Base name without extension. Sidecar files are looked up by it.
	Dir   string      // The directory of the source file.
	Path  string      // The source file.
	Image image.Image // Nil if the frame could not be decoded.
}

// Reader yields frames in order.
//
// ReadFrame returns io.EOF once Finished reports true. A frame that cannot be decoded is returned
// with an *annotate.DecodeError; the reader advances regardless, so callers may skip it.
type Reader interface {
	Finished() bool
	ReadFrame() (Frame, error)
	Close() error
}

// ReadAll reads the remaining frames of r, skipping the ones that cannot be decoded.
func ReadAll(r Reader) ([]Frame, error) {
	var frames []Frame
	for !r.Finished() {
		f, err := r.ReadFrame()
		if err == io.EOF {
			break
		}
		var decErr *annotate.DecodeError
		if errors.As(err, &decErr) {
			continue
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}
