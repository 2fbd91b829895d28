// Package config defines the bundler settings and helpers to load, validate
// and save them in YAML format.
//
// A run without a settings file uses Default, which reproduces the fixed
// linux/mac/windows x64 matrix and the pinned Temurin runtime version.
package config
