// Package archive extracts and produces the compressed trees handled by the
// bundler: zip for windows targets, gzip tarballs for everything else, and
// xz tarballs on the extraction side.
//
// Extraction keeps the permission bits recorded in the archive so launcher
// scripts and runtime binaries stay executable. Packaging writes to a pending
// file next to the destination and renames it into place only on success.
package archive
