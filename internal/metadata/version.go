package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// versionTag matches the first version element of a Maven project file.
var versionTag = regexp.MustCompile(`<version>(.*?)</version>`)

// ResolveVersion returns the first version tag value found in the file at path.
func ResolveVersion(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", release.Filesystem("read metadata "+path, err)
	}

	return ParseVersion(contents)
}

// ParseVersion extracts the first version tag value from metadata contents.
func ParseVersion(contents []byte) (string, error) {
	match := versionTag.FindSubmatch(contents)
	if match == nil {
		return "", release.ErrVersionNotFound
	}

	version := strings.TrimSpace(string(match[1]))
	if version == "" {
		return "", fmt.Errorf("empty version tag: %w", release.ErrVersionNotFound)
	}

	return version, nil
}
