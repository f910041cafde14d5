package frames

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FilesIterator iterates over the files with a given extension in a directory, in path order.
type FilesIterator struct {
	files []string
	next  int
}

// NewFilesIterator lists the regular files (and symlinks) with extension ext found directly in
// dirPath. ext may be given with or without the leading dot and is matched case-insensitively.
// All files are listed if ext is empty.
func NewFilesIterator(dirPath, ext string) (*FilesIterator, error) {
	files, err := filesByExtInDir(dirPath, ext)
	if err != nil {
		return nil, err
	}
	return &FilesIterator{files: files}, nil
}

// Len is the total number of files.
func (it *FilesIterator) Len() int {
	return len(it.files)
}

// Finished reports whether all files have been returned.
func (it *FilesIterator) Finished() bool {
	return it.next >= len(it.files)
}

// Next returns the path of the next file, or io.EOF.
func (it *FilesIterator) Next() (string, error) {
	if it.Finished() {
		return "", io.EOF
	}
	path := it.files[it.next]
	it.next++
	return path, nil
}

// filesByExtInDir returns the sorted paths of all regular files with file extension ext found
// directly in directory dirPath.
func filesByExtInDir(dirPath, ext string) ([]string, error) {
	dirInfo, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}
	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("cannot read directory %q: not a directory", dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil && len(entries) == 0 {
		return nil, fmt.Errorf("failed to access %q: %v", dirPath, err)
	}
	if err != nil {
		log.Printf("[Frames] Failed to access some files in %q: %v", dirPath, err)
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		// Must be a regular file or a symlink and have the requested extension.
		mode := entry.Type()
		if !mode.IsRegular() && mode&os.ModeSymlink == 0 {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dirPath, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

// splitPath splits the given file path into the dir name and the base name without extension.
func splitPath(path string) (dir, baseNoExt string) {
	dir, file := filepath.Split(path)
	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = strings.TrimSuffix(file, filepath.Ext(file))
	return dir, baseNoExt
}
