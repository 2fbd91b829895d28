package release

import (
	"fmt"
	"strings"
)

// Platform is an operating system token as used by the runtime vendor.
type Platform string

const (
	// PlatformLinux targets Linux distributions.
	PlatformLinux Platform = "linux"
	// PlatformMac targets macOS.
	PlatformMac Platform = "mac"
	// PlatformWindows targets Windows.
	PlatformWindows Platform = "windows"
)

// Family groups platforms that share a launcher flavor and archive format.
type Family string

const (
	// FamilyUnix covers linux and mac.
	FamilyUnix Family = "unix"
	// FamilyWindows covers windows.
	FamilyWindows Family = "windows"
)

// Format is the container format of an archive.
type Format string

const (
	// FormatZip is a deflate-compressed zip file.
	FormatZip Format = "zip"
	// FormatTarGz is a gzip-compressed tarball.
	FormatTarGz Format = "tar.gz"
	// FormatTarXz is an xz-compressed tarball. Only used for extraction.
	FormatTarXz Format = "tar.xz"
)

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParsePlatform validates a platform token.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformLinux, PlatformMac, PlatformWindows:
		return p, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownPlatform)
	}
}

// Family returns the launcher family of the platform.
func (p Platform) Family() Family {
	if p == PlatformWindows {
		return FamilyWindows
	}

	return FamilyUnix
}

// Target identifies one build job: a platform and an architecture.
type Target struct {
	// Platform is the operating system of the produced archive.
	Platform Platform `yaml:"platform"`
	// Arch is the architecture token, e.g. x64.
	Arch string `yaml:"arch"`
}

// DefaultTargets returns the fixed matrix built by a parameterless run.
func DefaultTargets() []Target {
	return []Target{
		{Platform: PlatformLinux, Arch: "x64"},
		{Platform: PlatformMac, Arch: "x64"},
		{Platform: PlatformWindows, Arch: "x64"},
	}
}

// String renders the target as platform/arch.
func (t Target) String() string {
	return string(t.Platform) + "/" + t.Arch
}

// Family returns the launcher family of the target platform.
func (t Target) Family() Family {
	return t.Platform.Family()
}

// Format returns the archive format shipped for the target.
func (t Target) Format() Format {
	if t.Family() == FamilyWindows {
		return FormatZip
	}

	return FormatTarGz
}

// ArchiveExt returns the extension of archives for the target.
func (t Target) ArchiveExt() string {
	return t.Format().Extension()
}

// DistributionName returns the versioned top-level directory name, <app>-<version>.
func DistributionName(app, version string) string {
	return app + "-" + version
}

// ArchiveName returns the output file name <app>-<version>-<platform>-<arch><ext>.
func ArchiveName(app, version string, t Target) string {
	return fmt.Sprintf("%s-%s-%s%s", DistributionName(app, version), t.Platform, t.Arch, t.ArchiveExt())
}

// BaseArchiveName returns the file name of the pre-built base distribution.
func BaseArchiveName(app, version string) string {
	return DistributionName(app, version) + FormatTarGz.Extension()
}
