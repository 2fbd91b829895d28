//go:build !windows

package manifest

import (
	"os"

	"github.com/google/renameio"
)

// writeFile replaces filename so that readers see either the old or the new contents.
func writeFile(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}
