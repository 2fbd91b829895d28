package launcher

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// variant describes how the launcher of one family is handled.
type variant struct {
	// script returns the launcher file name kept for the family.
	script func(app string) string
	// pruned returns the launcher file name of the other family.
	pruned func(app string) string
	// anchor matches the line after which the fallback is inserted.
	anchor *regexp.Regexp
	// statement renders the fallback for a runtime directory relative to the distribution root.
	statement func(rel string) string
	// newline is used when the anchor is the last line of the script.
	newline string
}

//nolint:gochecknoglobals // Read-only registry of launcher variants.
var variants = map[release.Family]variant{
	release.FamilyWindows: {
		script: func(app string) string { return app + ".bat" },
		pruned: func(app string) string { return app },
		anchor: regexp.MustCompile(`(?m)^set REPO=.*?$`),
		statement: func(rel string) string {
			return `if not defined JAVA_HOME set JAVA_HOME="%BASEDIR%\` +
				strings.ReplaceAll(filepath.ToSlash(rel), "/", `\`) + `"`
		},
		newline: "\r\n",
	},
	release.FamilyUnix: {
		script: func(app string) string { return app },
		pruned: func(app string) string { return app + ".bat" },
		anchor: regexp.MustCompile(`(?m)^BASEDIR=.*?$`),
		statement: func(rel string) string {
			return `[ -z "$JAVA_HOME" ] && JAVA_HOME="$BASEDIR"/` + filepath.ToSlash(rel)
		},
		newline: "\n",
	},
}

// lookup returns the variant registered for family.
func lookup(family release.Family) (variant, error) {
	v, ok := variants[family]
	if !ok {
		return variant{}, fmt.Errorf("launcher family %q: %w", family, release.ErrUnknownPlatform)
	}

	return v, nil
}

// ScriptPath returns the launcher kept for family inside distDir.
func ScriptPath(distDir, app string, family release.Family) (string, error) {
	v, err := lookup(family)
	if err != nil {
		return "", err
	}

	return filepath.Join(distDir, "bin", v.script(app)), nil
}

// Rewrite inserts the fallback statement on a new line right after the first
// anchor line of content. The line ending already used by the anchor line is kept.
func Rewrite(content []byte, family release.Family, relRuntimeDir string) ([]byte, error) {
	v, err := lookup(family)
	if err != nil {
		return nil, err
	}

	loc := v.anchor.FindIndex(content)
	if loc == nil {
		return nil, fmt.Errorf("%w: %s", release.ErrPatchAnchorNotFound, v.anchor)
	}

	end := loc[1]
	if end > loc[0] && content[end-1] == '\r' {
		end--
	}

	newline := v.newline

	switch rest := content[end:]; {
	case bytes.HasPrefix(rest, []byte("\r\n")):
		newline = "\r\n"
	case bytes.HasPrefix(rest, []byte("\n")):
		newline = "\n"
	}

	patched := make([]byte, 0, len(content)+len(newline)+len(v.statement(relRuntimeDir)))
	patched = append(patched, content[:end]...)
	patched = append(patched, newline...)
	patched = append(patched, v.statement(relRuntimeDir)...)
	patched = append(patched, content[end:]...)

	return patched, nil
}

// Patch rewrites the launcher at scriptPath in place. The file keeps its mode
// and stays untouched when the anchor line is missing.
func Patch(scriptPath string, family release.Family, relRuntimeDir string) error {
	info, err := os.Stat(scriptPath)
	if err != nil {
		return release.Filesystem("stat launcher", err)
	}

	content, err := os.ReadFile(filepath.Clean(scriptPath))
	if err != nil {
		return release.Filesystem("read launcher", err)
	}

	patched, err := Rewrite(content, family, relRuntimeDir)
	if err != nil {
		return fmt.Errorf("%s: %w", scriptPath, err)
	}

	checksum := sha256.Sum256(patched)

	options := goupdate.Options{
		TargetPath: scriptPath,
		TargetMode: info.Mode().Perm(),
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(bytes.NewReader(patched), options); err != nil {
		return release.Filesystem("apply launcher patch", err)
	}

	return nil
}

// Prune removes the launcher of the other family from distDir. A missing file is not an error.
func Prune(distDir, app string, family release.Family) error {
	v, err := lookup(family)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(distDir, "bin", v.pruned(app)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return release.Filesystem("prune launcher", err)
	}

	return nil
}

// Prepare patches the launcher of family and prunes the other one. It returns
// the path of the patched launcher.
func Prepare(distDir, app string, family release.Family, relRuntimeDir string) (string, error) {
	script, err := ScriptPath(distDir, app, family)
	if err != nil {
		return "", err
	}

	if err = Patch(script, family, relRuntimeDir); err != nil {
		return "", err
	}

	if err = Prune(distDir, app, family); err != nil {
		return "", err
	}

	return script, nil
}
