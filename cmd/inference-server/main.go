// Serves MJPEG streams of frames with their detections drawn and annotates uploaded images.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/foghegehog/inference-server/config"
	"github.com/foghegehog/inference-server/server"
	"github.com/foghegehog/inference-server/store"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful shutdown of open requests.
const shutdownTimeout = 10 * time.Second

var cfg = config.Default()

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	configPath := flag.String("config", "", "The YAML configuration file `path`")
	addr := flag.String("addr", "", "The listen `address` (overrides the configuration)")
	baseDir := flag.String("base-dir", "",
		"The frame base directory `path` (overrides the configuration)")
	release := flag.Bool("release", false, "Run in release mode")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			printUsageAndExit(err)
		}
		cfg = c
	}

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *baseDir != "" {
		cfg.BaseDir = filepath.Clean(*baseDir)
	}
	if *release {
		cfg.Release = true
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	level, err := cfg.Level()
	if err != nil {
		printUsageAndExit(err)
	}
	log.SetLevel(level)
}

// openStore connects to redis when an address is configured and keeps results in memory
// otherwise.
func openStore(c config.Redis) (store.Store, error) {
	if c.Address == "" {
		log.Print("[Main] Keeping annotation results in memory")
		return store.NewMemoryStore(), nil
	}

	s := store.NewRedisStore(store.NewRedisPool(c.Address, c.MaxConnections))
	if err := s.Ping(); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Printf("[Main] Keeping annotation results in redis at %s", c.Address)
	return s, nil
}

func main() {
	if cfg.SentryDSN != "" {
		if err := raven.SetDSN(cfg.SentryDSN); err != nil {
			log.Fatal("[Main] Cannot set the Sentry DSN: ", err)
		}
	}
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	opts, err := cfg.Stream.Options()
	if err != nil {
		log.Fatal("[Main] Invalid stream configuration: ", err)
	}
	detections, err := cfg.Detection.Source()
	if err != nil {
		log.Fatal("[Main] Invalid detection configuration: ", err)
	}

	results, err := openStore(cfg.Redis)
	if err != nil {
		log.Fatal("[Main] Cannot open the result store: ", err)
	}
	defer results.Close()

	srv := server.New(server.Options{
		BaseDir:      cfg.BaseDir,
		Stream:       opts,
		Detections:   detections,
		Store:        results,
		TTL:          cfg.Redis.TTL,
		ReportErrors: cfg.SentryDSN != "",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Request contexts derive from ctx so that running streams end on shutdown.
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[Main] Serving %s on %s", cfg.BaseDir, cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Print("[Main] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		raven.CaptureErrorAndWait(err, nil)
		log.Fatal("[Main] Server failed: ", err)
	}
}
