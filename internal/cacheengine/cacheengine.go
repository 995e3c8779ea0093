// Package cacheengine resolves a job's cache declarations into
// concrete, provider-ready cache keys: it probes for installed tool
// versions, resolves checksum sources, and assembles the key grammar
// spec.md 6 defines, plus the ordered restore-key fallback list
// spec.md 4.4 requires.
package cacheengine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/pkg/model"
)

// KeyContext supplies the platform dimensions every cache key starts
// with: <os>-<os_version>-<arch>-<name>[...] (spec.md 6).
type KeyContext struct {
	OS        string
	OSVersion string
	Arch      string
}

// VersionProbe resolves a single model.Probe to an installed tool
// version. Implementations may read a file (model.Probe.File) or run a
// command (model.Probe.Command); internal/probe supplies the concrete
// implementation, which runs probes against the repository root at
// generation time.
type VersionProbe interface {
	Probe(ctx context.Context, p model.Probe) (version string, ok bool, err error)
}

// ChecksumResolver resolves a single source file group name to its full
// hex checksum string, or "" if the group has no matching files.
type ChecksumResolver interface {
	Checksum(ctx context.Context, group string) (string, error)
}

// ResolvedCache is one job.cache entry fully resolved: the primary key,
// its ordered restore-key fallbacks, and the paths it covers.
type ResolvedCache struct {
	Name        string
	Key         string
	RestoreKeys []string
	Paths       []string
	Backend     string
}

// Resolve implements the six cache-resolution steps of spec.md 4.4 for
// every cache a job declares.
func Resolve(
	ctx context.Context,
	job *model.Job,
	defs map[string]*model.CacheDefinition,
	versionSources map[string]*model.VersionSource,
	kctx KeyContext,
	probes VersionProbe,
	checksums ChecksumResolver,
) ([]ResolvedCache, error) {
	names := make([]string, 0, len(job.Cache))
	for name := range job.Cache {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []ResolvedCache
	for _, name := range names {
		use := job.Cache[name]
		def, ok := defs[name]
		if !ok {
			return nil, fmt.Errorf("cache %q has no definition", name)
		}

		paths := def.Paths
		if use != nil && len(use.Paths) > 0 {
			paths = use.Paths
		}

		versionSegments, err := resolveVersions(ctx, def.Versions, versionSources, probes)
		if err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}

		checksumSegment, err := resolveChecksum(ctx, def.ChecksumSources, checksums)
		if err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}

		key, restoreKeys := buildKey(kctx, name, versionSegments, checksumSegment)

		out = append(out, ResolvedCache{
			Name:        name,
			Key:         key,
			RestoreKeys: restoreKeys,
			Paths:       paths,
			Backend:     def.Backend,
		})
	}

	return out, nil
}

// resolveVersions walks each Detectable in order. Every candidate
// VersionSource that resolves at all is kept, and the one with the
// highest semantic version wins (github.com/hashicorp/go-version),
// not merely the first to resolve — spec.md 4.4 step 2's "detect:[...]
// picks the first resolving tool" governs which *source names* are
// eligible, not which of several simultaneously-installed versions of
// the same tool class should be preferred. A candidate whose probed
// string isn't a parseable semver (e.g. a probe returning a raw git
// SHA) falls back to first-resolved-wins for that Detectable, since
// there's nothing to compare it against.
func resolveVersions(ctx context.Context, list []model.Detectable, sources map[string]*model.VersionSource, probes VersionProbe) ([]string, error) {
	var segments []string
	for _, d := range list {
		if d.IsEmpty() {
			continue
		}

		type resolution struct {
			candidate string
			version   string
		}
		var resolutions []resolution

		for _, candidate := range d.Detect {
			vs, ok := sources[candidate]
			if !ok {
				continue
			}
			for _, p := range vs.Probes {
				version, ok, err := probes.Probe(ctx, p)
				if err != nil {
					return nil, diag.Wrap(diag.HashError(diag.Span{}, "probing version source %q", candidate), err)
				}
				if ok {
					resolutions = append(resolutions, resolution{candidate, version})
					break
				}
			}
		}

		if len(resolutions) == 0 {
			if !d.Optional {
				return nil, fmt.Errorf("none of %v resolved and this version source is required", d.Detect)
			}
			continue
		}

		best := resolutions[0]
		bestVer, err := version.NewVersion(best.version)
		if err == nil {
			for _, r := range resolutions[1:] {
				v, err := version.NewVersion(r.version)
				if err != nil {
					continue
				}
				if v.GreaterThan(bestVer) {
					best, bestVer = r, v
				}
			}
		}

		segments = append(segments, best.candidate+best.version)
	}
	return segments, nil
}

// resolveChecksum picks the first source file group in Detect whose
// checksum resolves to something non-empty.
func resolveChecksum(ctx context.Context, d model.Detectable, checksums ChecksumResolver) (string, error) {
	if d.IsEmpty() {
		return "", nil
	}
	for _, candidate := range d.Detect {
		sum, err := checksums.Checksum(ctx, candidate)
		if err != nil {
			return "", diag.Wrap(diag.HashError(diag.Span{}, "checksumming group %q", candidate), err)
		}
		if sum != "" {
			return sum, nil
		}
	}
	if d.Optional {
		return "", nil
	}
	return "", fmt.Errorf("none of checksum sources %v resolved", d.Detect)
}

// buildKey assembles the primary key and the restore-key fallback
// chain: full key, then the key with the checksum segment dropped,
// then that key with its final version segment also dropped
// (spec.md 6, SPEC_FULL 9).
func buildKey(kctx KeyContext, name string, versions []string, checksum string) (key string, restoreKeys []string) {
	base := []string{kctx.OS, kctx.OSVersion, kctx.Arch, name}
	base = append(base, versions...)

	full := strings.Join(base, "-")
	if checksum != "" {
		full += "-" + checksum
	}

	restore := []string{strings.Join(base, "-")}
	if len(versions) > 0 {
		noLastVersion := append([]string{}, base[:len(base)-1]...)
		restore = append(restore, strings.Join(noLastVersion, "-"))
	}

	return full, restore
}
