// Package manifest persists the release manifest written next to the
// produced archives.
//
// The FileRepository stores and loads the manifest as YAML on disk. Checksum
// computes the base64-encoded SHA-512 digests recorded for each archive.
package manifest
