package rom

import (
	"io"
	"os"
	"path/filepath"
)

// CreateFS is a file system that supports creating files.
type CreateFS interface {
	// Create creates a new file for writing.
	Create(name string) (file io.WriteCloser, err error)
}

// DirFS is a CreateFS rooted at a host directory.
type DirFS string

var _ CreateFS = DirFS("")

func (dir DirFS) Create(name string) (file io.WriteCloser, err error) {
	ouf, err := os.Create(filepath.Join(string(dir), filepath.FromSlash(name)))
	if err != nil {
		return
	}

	file = ouf
	return
}
