// Package metadata reads the distribution version from project metadata.
package metadata
