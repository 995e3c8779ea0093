// Package probe implements cacheengine.VersionProbe and
// ChecksumResolver against the real filesystem and shell: it is the
// concrete, on-disk counterpart to the interfaces internal/cacheengine
// declares so C5 stays unit-testable against fakes while
// internal/compile wires this package in for actual runs.
package probe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cigenhq/cigen/internal/hashsum"
	"github.com/cigenhq/cigen/pkg/model"
)

// Filesystem probes model.Probe against a repository root: a file
// probe reads Root/File and matches Pattern's single capture group; a
// command probe runs Command with Root as its working directory and
// trims stdout. Command probes run here, at generation time, under
// the same assumption the synthesized skip-check/cache steps make
// elsewhere: cigen generate itself executes with the repository
// checked out (typically the CircleCI dynamic-config setup job, or a
// GitHub Actions step before the rest of the workflow exists).
type Filesystem struct {
	Root string
}

func (f *Filesystem) Probe(ctx context.Context, p model.Probe) (version string, ok bool, err error) {
	if p.IsFileProbe() {
		return f.probeFile(p)
	}
	return f.probeCommand(ctx, p)
}

func (f *Filesystem) probeFile(p model.Probe) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(f.Root, p.File))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return "", false, err
	}
	m := re.FindSubmatch(data)
	if len(m) < 2 {
		return "", false, nil
	}
	return string(m[1]), true, nil
}

func (f *Filesystem) probeCommand(ctx context.Context, p model.Probe) (string, bool, error) {
	if p.Command == "" {
		return "", false, nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	cmd.Dir = f.Root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Ran but exited non-zero: treat as "not installed" rather
			// than a hard failure, same as a missing probe file.
			return "", false, nil
		}
		return "", false, err
	}

	version := strings.TrimSpace(out.String())
	if version == "" {
		return "", false, nil
	}
	return version, true, nil
}

// ChecksumSources resolves a source file group name to the hex digest
// internal/hashsum computes over its expanded file set, reusing C4
// rather than hashing independently.
type ChecksumSources struct {
	Root    string
	Groups  map[string]*model.SourceFileGroup
	Tracked []string
}

func (c *ChecksumSources) Checksum(ctx context.Context, group string) (string, error) {
	paths, err := hashsum.ResolveGroupOrdered(c.Groups, group, c.Tracked)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}

	// The full 64 lowercase hex characters, per spec.md 6's key grammar
	// — not a truncated prefix.
	return hashsum.ChecksumFiles(ctx, c.Root, paths)
}
