// Package bundler turns the platform-neutral base distribution into one
// self-contained archive per target.
//
// For every target it extracts the base distribution into a private
// workspace, downloads the matching JDK, links a minimized runtime image into
// the distribution, patches the launcher to fall back to that image and
// packages the result. Run wires configuration, the run lock, the release
// manifest and metrics around the pipeline.
package bundler
