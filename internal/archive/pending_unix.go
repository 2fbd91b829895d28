//go:build !windows

package archive

import (
	"io/fs"

	"github.com/google/renameio"
)

// pendingFile is an output file that replaces its destination atomically.
type pendingFile struct {
	*renameio.PendingFile
}

// newPendingFile opens a temporary file on the same file system as dest.
func newPendingFile(dest string) (*pendingFile, error) {
	pf, err := renameio.TempFile("", dest)
	if err != nil {
		return nil, err
	}

	return &pendingFile{PendingFile: pf}, nil
}

// Chmod sets the mode the published file will have.
func (p *pendingFile) Chmod(mode fs.FileMode) error {
	return p.File.Chmod(mode)
}

// Commit closes the file and renames it over the destination.
func (p *pendingFile) Commit() error {
	return p.CloseAtomicallyReplace()
}
