// Package version exposes build metadata of ltex-bundler.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// AttachCobraVersionCommand adds the matching `version` subcommand.
package version
