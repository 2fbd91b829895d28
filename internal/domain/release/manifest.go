package release

import "time"

// Actor identifies the machine and user that produced a release.
type Actor struct {
	// Hostname is the machine name of the builder.
	Hostname string `yaml:"hostname"`
	// Username is the system user running the build.
	Username string `yaml:"username"`
}

// Artifact describes one produced archive.
type Artifact struct {
	// Target is the platform and architecture of the archive.
	Target Target `yaml:"target"`
	// File is the archive file name inside the output directory.
	File string `yaml:"file"`
	// Size is the archive size in bytes.
	Size int64 `yaml:"size"`
	// Checksum is the base64-encoded SHA-512 digest of the archive.
	Checksum string `yaml:"checksum"`
}

// Manifest summarizes the archives published by one run.
type Manifest struct {
	// Version is the application version taken from the metadata file.
	Version string `yaml:"version"`
	// RuntimeVersion is the bundled Java runtime release.
	RuntimeVersion string `yaml:"runtime_version"`
	// RunID identifies the run that produced the archives.
	RunID string `yaml:"run_id"`
	// BuiltAt is when the run finished.
	BuiltAt time.Time `yaml:"built_at"`
	// Builder is who produced the archives.
	Builder *Actor `yaml:"builder,omitempty"`
	// Artifacts lists the archives in matrix order.
	Artifacts []Artifact `yaml:"artifacts"`
}

