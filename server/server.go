// Package server is the HTTP surface: MJPEG streams of annotated frames and an annotation
// endpoint for uploaded images.
package server

import (
	"net/http"
	"time"

	"github.com/foghegehog/inference-server/detection"
	"github.com/foghegehog/inference-server/frames"
	"github.com/foghegehog/inference-server/store"
	"github.com/foghegehog/inference-server/stream"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Options configure a Server.
type Options struct {
	BaseDir      string             // Root of the paths of stream requests.
	Stream       stream.Options     // Defaults of the stream sessions.
	Detections   detection.Source   // Detections drawn onto streamed frames.
	Registry     *frames.Registry   // Optional, frames.NewRegistry() if nil.
	Store        store.Store        // Optional, a MemoryStore if nil.
	TTL          time.Duration      // How long annotation results are kept.
	Stats        *stream.Statistics // Optional, shared processing statistics.
	ReportErrors bool               // Send internal errors to Sentry.
}

// Server serves the HTTP API.
type Server struct {
	opts    Options
	started time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = frames.NewRegistry()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Stats == nil {
		opts.Stats = &stream.Statistics{}
	}
	if opts.TTL <= 0 {
		opts.TTL = store.DefaultTTL
	}
	return &Server{opts: opts, started: time.Now()}
}

// Handler returns the router with all routes.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors)

	router.GET("/stream/:reader/*path", s.handleStream)
	router.GET("/v1/readers", s.handleReaders)

	router.OPTIONS("/v1/annotate", handleOptions)
	router.POST("/v1/annotate", s.handleAnnotate)
	router.GET("/v1/annotate/:uuid", s.handleGetAnnotation)

	router.GET("/v1/stats", s.handleStats)

	return router
}

// cors sets the CORS headers of the API.
func cors(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers",
		"Content-Type, X-Requested-With, X-PINGOTHER, X-File-Name, Cache-Control")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
	h.Set("Access-Control-Expose-Headers", "Location, X-Box")
	c.Next()
}

func handleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, struct{}{})
}

// fail answers the request with a JSON error. Server errors are logged and reported.
func (s *Server) fail(c *gin.Context, code int, msg string, err error) {
	if code >= http.StatusInternalServerError {
		log.Errorf("[Server] %s %s: %s: %v", c.Request.Method, c.Request.URL.Path, msg, err)
		if s.opts.ReportErrors && err != nil {
			raven.CaptureError(err, map[string]string{"route": c.FullPath()})
		}
	} else if err != nil {
		msg += ": " + err.Error()
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func (s *Server) handleReaders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"readers": s.opts.Registry.Types()})
}
