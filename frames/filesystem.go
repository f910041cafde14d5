package frames

import "github.com/foghegehog/inference-server/annotate"

// DefaultExt is the image extension read by a FilesystemReader unless configured otherwise.
const DefaultExt = "jpg"

// FilesystemReader reads the images of a directory as frames, in file name order.
type FilesystemReader struct {
	files *FilesIterator
	index int
}

// NewFilesystemReader creates a reader for the files with extension ext in dir.
func NewFilesystemReader(dir, ext string) (*FilesystemReader, error) {
	if ext == "" {
		ext = DefaultExt
	}
	files, err := NewFilesIterator(dir, ext)
	if err != nil {
		return nil, err
	}
	return &FilesystemReader{files: files}, nil
}

// Len is the number of frames in the directory.
func (r *FilesystemReader) Len() int {
	return r.files.Len()
}

func (r *FilesystemReader) Finished() bool {
	return r.files.Finished()
}

func (r *FilesystemReader) ReadFrame() (Frame, error) {
	path, err := r.files.Next()
	if err != nil {
		return Frame{}, err
	}

	dir, name := splitPath(path)
	f := Frame{Index: r.index, Name: name, Dir: dir, Path: path}
	r.index++

	img, _, err := annotate.LoadImage(path)
	if err != nil {
		return f, err
	}
	f.Image = img

	return f, nil
}

func (r *FilesystemReader) Close() error {
	r.files.next = r.files.Len()
	return nil
}

var _ Reader = (*FilesystemReader)(nil)
