//go:build windows

package archive

import (
	"io/fs"
	"os"
	"path/filepath"
)

// pendingFile is an output file renamed over its destination on Commit.
type pendingFile struct {
	*os.File

	// dest is the final location.
	dest string
	// done is set once the file has been renamed into place.
	done bool
}

// newPendingFile opens a temporary file next to dest.
func newPendingFile(dest string) (*pendingFile, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, err
	}

	return &pendingFile{File: f, dest: dest}, nil
}

// Chmod is a no-op; windows has no unix mode bits.
func (p *pendingFile) Chmod(fs.FileMode) error {
	return nil
}

// Commit closes the file and renames it over the destination.
func (p *pendingFile) Commit() error {
	if err := p.Close(); err != nil {
		return err
	}

	if err := os.Rename(p.Name(), p.dest); err != nil {
		return err
	}

	p.done = true

	return nil
}

// Cleanup removes the temporary file unless it was committed.
func (p *pendingFile) Cleanup() error {
	if p.done {
		return nil
	}

	_ = p.Close()

	return os.Remove(p.Name())
}
