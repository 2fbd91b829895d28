// Package common holds helpers shared by several services.
//
// It detects the current system actor (hostname/username) recorded as the
// builder of a release.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
