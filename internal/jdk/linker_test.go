package jdk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// writeStubLinker writes an executable shell script standing in for jlink.
// Tests using it run sequentially to avoid ETXTBSY on freshly written scripts.
func writeStubLinker(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script stubs require a unix shell")
	}

	path := filepath.Join(t.TempDir(), "jlink")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

// TestJLink_Args checks the fixed jlink options.
func TestJLink_Args(t *testing.T) {
	t.Parallel()

	linker := NewJLink("/opt/jdk/bin/jlink", []string{"java.se"}, 2, 0)
	require.Equal(t, []string{
		"--module-path", "/ws/jdk/jmods",
		"--add-modules", "java.se",
		"--strip-debug",
		"--no-man-pages",
		"--no-header-files",
		"--compress=2",
		"--output", "/ws/dist/jdk",
	}, linker.Args("/ws/jdk/jmods", "/ws/dist/jdk"))
	require.Equal(t, defaultLinkerTimeout, linker.Timeout)
}

// TestJLink_BuildSuccess runs a stub linker and checks the arguments it received.
func TestJLink_BuildSuccess(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	linker := NewJLink(writeStubLinker(t, `echo "$@" > "`+argsFile+`"
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then mkdir -p "$2/bin"; fi
  shift
done
`), []string{"java.se"}, 2, time.Minute)

	output := filepath.Join(t.TempDir(), "image")
	require.NoError(t, linker.Build(context.Background(), "/mods", output))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t,
		"--module-path /mods --add-modules java.se --strip-debug --no-man-pages --no-header-files --compress=2 --output "+output,
		strings.TrimSpace(string(args)))

	_, err = os.Stat(filepath.Join(output, "bin"))
	require.NoError(t, err)
}

// TestJLink_BuildFailure captures the exit code and the tool output.
func TestJLink_BuildFailure(t *testing.T) {
	linker := NewJLink(writeStubLinker(t, "echo 'Error: module java.se not found' >&2\nexit 3\n"), []string{"java.se"}, 2, time.Minute)

	err := linker.Build(context.Background(), "/mods", filepath.Join(t.TempDir(), "image"))
	require.ErrorIs(t, err, release.ErrExternalTool)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	require.Equal(t, 3, toolErr.ExitCode)
	require.Contains(t, toolErr.Output, "module java.se not found")
	require.Contains(t, err.Error(), "exited with code 3")
}

// TestJLink_MissingTool reports a failure when the linker cannot be started.
func TestJLink_MissingTool(t *testing.T) {
	t.Parallel()

	linker := NewJLink(filepath.Join(t.TempDir(), "no-such-jlink"), []string{"java.se"}, 2, time.Minute)

	err := linker.Build(context.Background(), "/mods", t.TempDir())
	require.ErrorIs(t, err, release.ErrExternalTool)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	require.Equal(t, -1, toolErr.ExitCode)
	require.Error(t, toolErr.Err)
}

// TestResolveLinker prefers the configured path.
func TestResolveLinker(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/custom/jlink", ResolveLinker("/custom/jlink"))
}
