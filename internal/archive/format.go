package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// DetectFormat selects the archive format from the file extension.
func DetectFormat(path string) (release.Format, error) {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, ".zip"):
		return release.FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return release.FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return release.FormatTarXz, nil
	default:
		return "", fmt.Errorf("%s: %w", filepath.Base(path), release.ErrUnsupportedFormat)
	}
}
