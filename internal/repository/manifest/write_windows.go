//go:build windows

package manifest

import "os"

// writeFile writes filename in place; renameio does not support windows.
func writeFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}
