package release

import (
	"errors"
	"fmt"
)

// Failure kinds. Every pipeline error wraps exactly one of them.
var (
	// ErrVersionNotFound is returned when the metadata file holds no version tag.
	ErrVersionNotFound = errors.New("version not found")
	// ErrUnsupportedFormat is returned for archives with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrNetwork is returned on transport failures and non-success HTTP statuses.
	ErrNetwork = errors.New("network error")
	// ErrExternalTool is returned when the module linker exits non-zero.
	ErrExternalTool = errors.New("external tool failed")
	// ErrPatchAnchorNotFound is returned when the launcher lacks its anchor line.
	ErrPatchAnchorNotFound = errors.New("launcher patch anchor not found")
	// ErrFilesystem is returned for local I/O failures.
	ErrFilesystem = errors.New("filesystem error")
	// ErrIntegrity is returned when a downloaded archive fails checksum verification.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrUnknownPlatform is returned when a target names an unsupported platform.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Stage names a step of the per-target pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageWorkspace    Stage = "workspace"
	StageExtractBase  Stage = "extract-base"
	StageFetchRuntime Stage = "fetch-runtime"
	StageBuildImage   Stage = "build-runtime-image"
	StagePatch        Stage = "patch-launcher"
	StagePackage      Stage = "package"
)

// StageError reports which target and stage a failure belongs to.
type StageError struct {
	// Target is the build job that failed.
	Target Target
	// Stage is the pipeline step that failed.
	Stage Stage
	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("target %s: stage %s: %v", e.Target, e.Stage, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Filesystem wraps an I/O failure into ErrFilesystem with an operation label.
func Filesystem(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFilesystem, op, err)
}
