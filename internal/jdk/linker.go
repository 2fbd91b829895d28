package jdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
	"github.com/oshokin/ltex-ls-bundler/internal/logger"
)

// defaultLinkerTimeout bounds jlink when no timeout is configured.
const defaultLinkerTimeout = 10 * time.Minute

// ImageBuilder produces a minimized runtime image from a JDK modules directory.
type ImageBuilder interface {
	Build(ctx context.Context, modulesDir, outputDir string) error
}

// ToolError reports a failed invocation of an external tool.
type ToolError struct {
	// Tool is the executable that was run.
	Tool string
	// ExitCode is the process exit status, -1 when the process did not exit normally.
	ExitCode int
	// Output is the combined stdout and stderr of the process.
	Output string
	// Err is the underlying exec failure.
	Err error
}

// Error implements error.
func (e *ToolError) Error() string {
	var b strings.Builder

	b.WriteString(release.ErrExternalTool.Error())
	b.WriteString(": ")
	b.WriteString(e.Tool)
	b.WriteString(" exited with code ")
	b.WriteString(strconv.Itoa(e.ExitCode))

	if e.Err != nil {
		b.WriteString(" (")
		b.WriteString(e.Err.Error())
		b.WriteString(")")
	}

	if output := strings.TrimSpace(e.Output); output != "" {
		b.WriteString(": ")
		b.WriteString(output)
	}

	return b.String()
}

// Unwrap lets errors.Is match ErrExternalTool and the exec failure.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{release.ErrExternalTool}
	}

	return []error{release.ErrExternalTool, e.Err}
}

// JLink builds runtime images with the jlink tool.
type JLink struct {
	// Path is the jlink executable.
	Path string
	// Modules are the root modules of the image.
	Modules []string
	// CompressLevel is passed to --compress.
	CompressLevel int
	// Timeout bounds a single invocation.
	Timeout time.Duration
}

// NewJLink creates a JLink builder. An empty path resolves the linker from
// JAVA_HOME or PATH.
func NewJLink(path string, modules []string, compressLevel int, timeout time.Duration) *JLink {
	if timeout <= 0 {
		timeout = defaultLinkerTimeout
	}

	return &JLink{
		Path:          ResolveLinker(path),
		Modules:       append([]string(nil), modules...),
		CompressLevel: compressLevel,
		Timeout:       timeout,
	}
}

// ResolveLinker returns the configured linker, the jlink of JAVA_HOME, or
// plain jlink to be looked up on PATH.
func ResolveLinker(configured string) string {
	if configured != "" {
		return configured
	}

	name := "jlink"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		candidate := filepath.Join(javaHome, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return name
}

// Args returns the jlink command line for one image.
func (j *JLink) Args(modulesDir, outputDir string) []string {
	return []string{
		"--module-path", modulesDir,
		"--add-modules", strings.Join(j.Modules, ","),
		"--strip-debug",
		"--no-man-pages",
		"--no-header-files",
		"--compress=" + strconv.Itoa(j.CompressLevel),
		"--output", outputDir,
	}
}

// Build runs jlink and returns a *ToolError when it fails.
func (j *JLink) Build(ctx context.Context, modulesDir, outputDir string) error {
	cmdCtx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	args := j.Args(modulesDir, outputDir)

	logger.DebugKV(ctx, "Running linker", "path", j.Path, "args", args)

	//nolint:gosec // The linker path and arguments come from the bundler configuration.
	cmd := exec.CommandContext(cmdCtx, j.Path, args...)

	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	toolErr := &ToolError{
		Tool:     j.Path,
		ExitCode: -1,
		Output:   string(output),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	} else {
		toolErr.Err = err
	}

	if ctxErr := cmdCtx.Err(); ctxErr != nil {
		toolErr.Err = fmt.Errorf("linker interrupted: %w", ctxErr)
	}

	return toolErr
}
