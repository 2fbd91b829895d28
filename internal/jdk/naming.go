package jdk

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// archTokens maps common architecture spellings onto the vendor tokens.
//
//nolint:gochecknoglobals // Read-only lookup table.
var archTokens = map[string]string{
	"x64":     "x64",
	"amd64":   "x64",
	"x86_64":  "x64",
	"aarch64": "aarch64",
	"arm64":   "aarch64",
}

// NormalizeArch returns the vendor architecture token for arch.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	if token, ok := archTokens[arch]; ok {
		return token
	}

	return arch
}

// FeatureVersion returns the major release number of a runtime version.
func FeatureVersion(version string) (uint64, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return 0, fmt.Errorf("parse runtime version %q: %w", version, err)
	}

	return v.Major(), nil
}

// ArchiveName returns the vendor file name of the JDK archive for t, e.g.
// OpenJDK11U-jdk_x64_windows_hotspot_11.0.12_7.zip.
func ArchiveName(version string, t release.Target) (string, error) {
	major, err := FeatureVersion(version)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("OpenJDK%dU-jdk_%s_%s_hotspot_%s%s",
		major,
		NormalizeArch(t.Arch),
		t.Platform,
		strings.ReplaceAll(version, "+", "_"),
		t.ArchiveExt(),
	), nil
}

// DownloadURL returns the release asset URL of the JDK archive for t.
// The + of the version is percent-encoded in the tag segment.
func DownloadURL(releaseHost, version string, t release.Target) (string, error) {
	major, err := FeatureVersion(version)
	if err != nil {
		return "", err
	}

	name, err := ArchiveName(version, t)
	if err != nil {
		return "", err
	}

	raw := fmt.Sprintf("%s/temurin%d-binaries/releases/download/jdk-%s/%s",
		strings.TrimRight(releaseHost, "/"),
		major,
		url.QueryEscape(version),
		name,
	)

	if _, err = url.ParseRequestURI(raw); err != nil {
		return "", fmt.Errorf("build download url: %w", err)
	}

	return raw, nil
}

// HomeDirName is the top-level directory of a Temurin JDK archive.
func HomeDirName(version string) string {
	return "jdk-" + version
}

// ModulesDir returns the jmods directory of an extracted JDK.
// Mac archives nest the JDK home in a bundle layout.
func ModulesDir(jdkHome string, p release.Platform) string {
	if p == release.PlatformMac {
		return filepath.Join(jdkHome, "Contents", "Home", "jmods")
	}

	return filepath.Join(jdkHome, "jmods")
}
