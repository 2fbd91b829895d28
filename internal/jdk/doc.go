// Package jdk acquires the Java runtime bundled into each archive.
//
// The Fetcher derives the Eclipse Temurin download URL for a target, downloads
// and extracts the JDK archive, and removes the download afterwards. The
// ImageBuilder capability turns the extracted JDK modules into a minimized
// runtime image; JLink implements it by running the jlink tool.
package jdk
