// Package stream serves frames with their detections drawn as an MJPEG stream.
package stream

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/foghegehog/inference-server/annotate"
	"github.com/foghegehog/inference-server/detection"
	"github.com/foghegehog/inference-server/frames"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Stream defaults.
var (
	DefaultFramePause = 40 * time.Millisecond
	DefaultColor      = color.NRGBA{R: 255, A: 255}
	DefaultThickness  = 1
)

// Options configure a session.
type Options struct {
	FramePause  time.Duration  // Minimum time between frames, including processing.
	JPEGQuality int            // Quality of the streamed frames.
	Width       int            // Frames are resized to this width if non-zero.
	MaxFrames   int            // The number of frames after which the stream ends. Zero for all.
	SkipEmpty   bool           // Skip frames without detections.
	ShowScores  bool           // Label boxes with their score.
	Style       annotate.Style // Box outline.
}

// DefaultOptions returns the options of a 25 fps stream of frames with detections, boxes drawn in
// red.
func DefaultOptions() Options {
	return Options{
		FramePause:  DefaultFramePause,
		JPEGQuality: annotate.DefaultJPEGQuality,
		SkipEmpty:   true,
		Style:       annotate.Style{Color: DefaultColor, Thickness: DefaultThickness},
	}
}

// Session streams the frames of a reader.
type Session struct {
	Reader     frames.Reader
	Detections detection.Source
	Options    Options
	Stats      *Statistics // Optional, shared between sessions.
}

// Run writes frames to w until the reader is exhausted, MaxFrames frames were sent or ctx is
// done. It returns the number of frames sent. The reader is not closed.
func (s *Session) Run(ctx context.Context, w *MJPEGWriter) (int, error) {
	sent := 0
	for s.Options.MaxFrames <= 0 || sent < s.Options.MaxFrames {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		start := time.Now()
		f, ds, err := s.next()
		if err == io.EOF {
			return sent, nil
		}
		if err != nil {
			return sent, err
		}

		enc, err := s.Render(f, ds)
		if err != nil {
			return sent, errors.Wrapf(err, "cannot render frame %q", f.Name)
		}
		if err := w.WriteFrame(enc); err != nil {
			return sent, errors.Wrap(err, "cannot write frame")
		}
		sent++

		elapsed := time.Since(start)
		if s.Stats != nil {
			s.Stats.Add(elapsed)
		}
		log.Debugf("[Stream] Sent frame %q with %d detections in %v", f.Name, len(ds), elapsed)

		if pause := s.Options.FramePause - elapsed; pause > 0 {
			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return sent, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return sent, nil
}

// next reads frames until one has detections, or any decodable frame if SkipEmpty is false.
// Frames that cannot be decoded are skipped.
func (s *Session) next() (frames.Frame, []detection.Detection, error) {
	for !s.Reader.Finished() {
		f, err := s.Reader.ReadFrame()
		if err == io.EOF {
			break
		}
		var decErr *annotate.DecodeError
		if errors.As(err, &decErr) {
			log.Printf("[Stream] Skipping frame %d: %v", f.Index, err)
			continue
		}
		if err != nil {
			return frames.Frame{}, nil, err
		}

		var ds []detection.Detection
		if s.Detections != nil {
			ds, err = s.Detections.Detections(f)
			if err != nil {
				log.Printf("[Stream] No detections for frame %q: %v", f.Name, err)
				ds = nil
			}
		}
		if len(ds) == 0 && s.Options.SkipEmpty {
			continue
		}
		return f, ds, nil
	}

	return frames.Frame{}, nil, io.EOF
}

// Render draws the detections onto a copy of the frame and encodes it as JPEG.
func (s *Session) Render(f frames.Frame, ds []detection.Detection) ([]byte, error) {
	if f.Image == nil {
		return nil, fmt.Errorf("frame %q has no image", f.Name)
	}

	var dst *image.NRGBA
	if w := s.Options.Width; w > 0 && f.Image.Bounds().Dx() != w {
		dst = imaging.Resize(f.Image, w, 0, imaging.Linear)
	} else {
		dst = imaging.Clone(f.Image)
	}

	style := s.Options.Style
	if style.Color == nil {
		style.Color = DefaultColor
	}
	if style.Thickness <= 0 {
		style.Thickness = DefaultThickness
	}
	for _, d := range ds {
		pb := annotate.DrawBox(dst, d.Box, style)
		if s.Options.ShowScores {
			annotate.DrawLabel(dst, pb.Rect().Min, fmt.Sprintf("%.2f", d.Score), style.Color)
		}
	}

	var buf bytes.Buffer
	if err := annotate.EncodeImage(&buf, dst, imaging.JPEG, s.Options.JPEGQuality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
