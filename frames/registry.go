package frames

import (
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownReader is returned by Registry.Open for an unregistered reader type.
	ErrUnknownReader = errors.New("unknown frame reader")
	// ErrPathEscape is returned for paths that resolve outside of the base directory.
	ErrPathEscape = errors.New("path escapes the base directory")
)

// Names of the built-in readers.
const (
	Filesystem = "filesystem"
	PDF        = "pdf"
)

// Factory opens a reader for an absolute path. params carry the query parameters of the request.
type Factory func(path string, params url.Values) (Reader, error)

// Registry maps reader types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the filesystem and pdf readers.
//
// The filesystem reader takes the "ext" parameter (default "jpg"), the pdf reader takes "dpi".
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(Filesystem, func(path string, params url.Values) (Reader, error) {
		return NewFilesystemReader(path, params.Get("ext"))
	})
	r.Register(PDF, func(path string, params url.Values) (Reader, error) {
		dpi := 0
		if s := params.Get("dpi"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v <= 0 {
				return nil, errors.Errorf("invalid dpi %q", s)
			}
			dpi = v
		}
		return NewPDFReader(path, dpi)
	})
	return r
}

// Register adds or replaces the factory for readerType.
func (r *Registry) Register(readerType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[readerType] = f
}

// Types returns the registered reader types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Open resolves subpath under baseDir and opens it with the reader registered for readerType.
func (r *Registry) Open(readerType, baseDir, subpath string, params url.Values) (Reader, error) {
	r.mu.RLock()
	f, ok := r.factories[readerType]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownReader, "%q", readerType)
	}

	path, err := ResolvePath(baseDir, subpath)
	if err != nil {
		return nil, err
	}

	return f(path, params)
}

// ResolvePath joins subpath to baseDir. Paths that leave baseDir are rejected with ErrPathEscape.
func ResolvePath(baseDir, subpath string) (string, error) {
	path := filepath.Join(baseDir, subpath)
	rel, err := filepath.Rel(filepath.Clean(baseDir), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrPathEscape, "%q", subpath)
	}
	return path, nil
}
