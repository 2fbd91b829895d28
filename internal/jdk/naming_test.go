package jdk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// TestArchiveNameAndURL covers the vendor naming convention for the default matrix.
func TestArchiveNameAndURL(t *testing.T) {
	t.Parallel()

	const base = "https://github.com/adoptium/temurin11-binaries/releases/download/jdk-11.0.12%2B7/"

	want := map[release.Platform]string{
		release.PlatformLinux:   "OpenJDK11U-jdk_x64_linux_hotspot_11.0.12_7.tar.gz",
		release.PlatformMac:     "OpenJDK11U-jdk_x64_mac_hotspot_11.0.12_7.tar.gz",
		release.PlatformWindows: "OpenJDK11U-jdk_x64_windows_hotspot_11.0.12_7.zip",
	}

	for _, target := range release.DefaultTargets() {
		name, err := ArchiveName("11.0.12+7", target)
		require.NoError(t, err)
		require.Equal(t, want[target.Platform], name)

		url, err := DownloadURL("https://github.com/adoptium/", "11.0.12+7", target)
		require.NoError(t, err)
		require.Equal(t, base+want[target.Platform], url)
	}
}

// TestArchiveName_FeatureVersion derives the repository and prefix from the major version.
func TestArchiveName_FeatureVersion(t *testing.T) {
	t.Parallel()

	target := release.Target{Platform: release.PlatformLinux, Arch: "amd64"}

	url, err := DownloadURL("https://github.com/adoptium", "17.0.8+7", target)
	require.NoError(t, err)
	require.Equal(t,
		"https://github.com/adoptium/temurin17-binaries/releases/download/jdk-17.0.8%2B7/"+
			"OpenJDK17U-jdk_x64_linux_hotspot_17.0.8_7.tar.gz",
		url)

	// GA releases carry no minor or patch segment.
	url, err = DownloadURL("https://github.com/adoptium", "21+35", target)
	require.NoError(t, err)
	require.Equal(t,
		"https://github.com/adoptium/temurin21-binaries/releases/download/jdk-21%2B35/"+
			"OpenJDK21U-jdk_x64_linux_hotspot_21_35.tar.gz",
		url)

	_, err = ArchiveName("not-a-version", target)
	require.Error(t, err)
}

// TestNormalizeArch maps architecture aliases onto vendor tokens.
func TestNormalizeArch(t *testing.T) {
	t.Parallel()

	require.Equal(t, "x64", NormalizeArch("x86_64"))
	require.Equal(t, "x64", NormalizeArch("AMD64"))
	require.Equal(t, "aarch64", NormalizeArch("arm64"))
	require.Equal(t, "ppc64le", NormalizeArch("ppc64le"))
}

// TestModulesDir uses the bundle layout on mac only.
func TestModulesDir(t *testing.T) {
	t.Parallel()

	home := filepath.Join("ws", "jdk-11.0.12+7")
	require.Equal(t, filepath.Join(home, "jmods"), ModulesDir(home, release.PlatformLinux))
	require.Equal(t, filepath.Join(home, "jmods"), ModulesDir(home, release.PlatformWindows))
	require.Equal(t, filepath.Join(home, "Contents", "Home", "jmods"), ModulesDir(home, release.PlatformMac))
}
