package frames

import (
	"fmt"
	"io"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the resolution PDF pages are rendered at unless configured otherwise.
const DefaultDPI = 72

// PDFReader renders the pages of a PDF document as frames. The frame of page n (from 1) is named
// "<doc>_p000n".
type PDFReader struct {
	doc  *fitz.Document
	path string
	dir  string
	name string
	dpi  float64
	next int
}

// NewPDFReader opens the document at path.
func NewPDFReader(path string, dpi int) (*PDFReader, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open PDF %q: %v", path, err)
	}

	dir, name := splitPath(path)
	return &PDFReader{doc: doc, path: path, dir: dir, name: name, dpi: float64(dpi)}, nil
}

// Len is the number of pages.
func (r *PDFReader) Len() int {
	return r.doc.NumPage()
}

func (r *PDFReader) Finished() bool {
	return r.next >= r.doc.NumPage()
}

func (r *PDFReader) ReadFrame() (Frame, error) {
	if r.Finished() {
		return Frame{}, io.EOF
	}

	page := r.next
	r.next++
	f := Frame{
		Index: page,
		Name:  fmt.Sprintf("%s_p%04d", r.name, page+1),
		Dir:   r.dir,
		Path:  r.path,
	}

	img, err := r.doc.ImageDPI(page, r.dpi)
	if err != nil {
		return f, &annotate.DecodeError{Source: f.Name, Err: err}
	}
	f.Image = img

	return f, nil
}

func (r *PDFReader) Close() error {
	return r.doc.Close()
}

var _ Reader = (*PDFReader)(nil)
