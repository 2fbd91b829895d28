// Package launcher rewrites the start scripts of a distribution so that they
// fall back to a bundled runtime image when JAVA_HOME is not set.
package launcher
