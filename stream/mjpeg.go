package stream

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
)

// Boundary separates the frames of the stream.
const Boundary = "frame"

// MJPEGWriter writes JPEG frames as the parts of a multipart/x-mixed-replace stream.
type MJPEGWriter struct {
	mw *multipart.Writer
	w  io.Writer
}

// NewMJPEGWriter returns a writer for w. If w is an http.Flusher, each frame is flushed.
func NewMJPEGWriter(w io.Writer) *MJPEGWriter {
	mw := multipart.NewWriter(w)
	// The boundary is a valid constant.
	_ = mw.SetBoundary(Boundary)
	return &MJPEGWriter{mw: mw, w: w}
}

// ContentType is the value of the Content-Type header of the response.
func (m *MJPEGWriter) ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + Boundary
}

// WriteFrame writes one JPEG image.
func (m *MJPEGWriter) WriteFrame(jpeg []byte) error {
	h := make(textproto.MIMEHeader, 2)
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(jpeg)))
	part, err := m.mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(jpeg); err != nil {
		return err
	}
	if f, ok := m.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Close writes the trailing boundary.
func (m *MJPEGWriter) Close() error {
	return m.mw.Close()
}
