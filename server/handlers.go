package server

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/foghegehog/inference-server/annotate"
	"github.com/foghegehog/inference-server/frames"
	"github.com/foghegehog/inference-server/store"
	"github.com/foghegehog/inference-server/stream"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"
)

// maxUploadSize limits the size of uploaded images.
const maxUploadSize = 32 << 20

// handleStream streams the frames at the requested path with their detections drawn.
//
// Query parameters are passed to the reader (e.g. ext, dpi). max_frames and width override the
// session defaults.
func (s *Server) handleStream(c *gin.Context) {
	readerType := c.Param("reader")
	r, err := s.opts.Registry.Open(readerType, s.opts.BaseDir, c.Param("path"),
		c.Request.URL.Query())
	switch {
	case errors.Is(err, frames.ErrUnknownReader):
		s.fail(c, http.StatusNotFound, "Unknown frame reader", err)
		return
	case errors.Is(err, frames.ErrPathEscape):
		s.fail(c, http.StatusBadRequest, "Invalid path", err)
		return
	case err != nil:
		s.fail(c, http.StatusNotFound, "Cannot open frames", err)
		return
	}
	defer r.Close()

	opts := s.opts.Stream
	for name, dst := range map[string]*int{"max_frames": &opts.MaxFrames, "width": &opts.Width} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(c, http.StatusBadRequest, "Invalid "+name, err)
			return
		}
		*dst = n
	}

	session := &stream.Session{
		Reader:     r,
		Detections: s.opts.Detections,
		Options:    opts,
		Stats:      s.opts.Stats,
	}
	w := stream.NewMJPEGWriter(c.Writer)
	c.Header("Content-Type", w.ContentType())
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	log.Printf("[Stream] Streaming %s %q", readerType, c.Param("path"))
	sent, err := session.Run(c.Request.Context(), w)
	if err != nil {
		log.Printf("[Stream] Stream %q ended after %d frames: %v", c.Param("path"), sent, err)
		return
	}
	if err := w.Close(); err != nil {
		log.Debugf("[Stream] Cannot close stream %q: %v", c.Param("path"), err)
	}
	log.Printf("[Stream] Stream %q finished after %d frames", c.Param("path"), sent)
}

// boxTokens returns the box of an annotate request, given either as one field with all values or
// as four repeated fields.
func boxTokens(c *gin.Context) []string {
	values := c.PostFormArray("box")
	if len(values) == 1 {
		return annotate.SplitBox(values[0])
	}
	return values
}

// requestStyle reads the optional color and thickness fields.
func requestStyle(c *gin.Context) (annotate.Style, error) {
	style := annotate.DefaultStyle()
	if v := c.PostForm("color"); v != "" {
		col, err := annotate.ParseColor(v)
		if err != nil {
			return style, err
		}
		style.Color = col
	}
	if v := c.PostForm("thickness"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil || t <= 0 {
			return style, &annotate.ArgumentError{Name: "thickness", Value: v,
				Reason: "must be a positive integer"}
		}
		style.Thickness = t
	}
	return style, nil
}

// handleAnnotate draws the box of the request onto the uploaded image. The annotated image is
// returned in the uploaded format (PNG for formats without an encoder) and kept in the store
// under the id in the Location header.
func (s *Server) handleAnnotate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("image")
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Picture is missing", nil)
		return
	}

	// Arguments are checked before the upload is decoded.
	box, err := annotate.ParseBox(boxTokens(c))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid box", err)
		return
	}
	style, err := requestStyle(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid style", err)
		return
	}

	file, err := header.Open()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Cannot read the upload", err)
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Cannot read the upload", err)
		return
	}

	img, formatName, err := annotate.DecodeImage(data, header.Filename)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid image", err)
		return
	}
	format, err := annotate.FormatFromName(formatName)
	if err != nil {
		format = imaging.PNG
	}

	annotated, pb := annotate.Annotate(img, box, style)

	var buf bytes.Buffer
	if err := annotate.EncodeImage(&buf, annotated, format, 0); err != nil {
		s.fail(c, http.StatusInternalServerError, "Cannot encode the image", err)
		return
	}

	id, err := uuid.NewV4()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Cannot create an id", err)
		return
	}
	result := store.Result{
		MimeType: annotate.MimeType(format),
		Data:     buf.Bytes(),
		Box:      pb,
		Created:  time.Now().Unix(),
	}
	if err := s.opts.Store.Put(id.String(), result, s.opts.TTL); err != nil {
		s.fail(c, http.StatusInternalServerError, "Cannot store the result", err)
		return
	}

	log.Debugf("[Server] Annotated %q at %v as %s", header.Filename, pb, id)
	c.Header("Location", id.String())
	c.Header("X-Box", pb.String())
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// handleGetAnnotation returns a stored annotation result.
func (s *Server) handleGetAnnotation(c *gin.Context) {
	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid id", err)
		return
	}

	result, ok, err := s.opts.Store.Get(id.String())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Cannot get the result", err)
		return
	}
	if !ok {
		s.fail(c, http.StatusNotFound, "No result for "+id.String(), nil)
		return
	}

	c.Header("X-Box", result.Box.String())
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// handleStats returns the frame processing statistics and figures of the server process.
func (s *Server) handleStats(c *gin.Context) {
	stats := gin.H{
		"frames":            s.opts.Stats.Frames(),
		"avg_processing_ms": s.opts.Stats.AvgProcessing(),
		"uptime_s":          int64(time.Since(s.started) / time.Second),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debugf("[Server] Cannot inspect the process: %v", err)
		c.JSON(http.StatusOK, stats)
		return
	}
	if mem, err := p.MemoryInfo(); err == nil {
		stats["rss_bytes"] = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats["cpu_percent"] = cpu
	}

	c.JSON(http.StatusOK, stats)
}
