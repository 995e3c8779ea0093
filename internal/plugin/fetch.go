package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
)

// ResolveOCIRef pulls the OCI artifact named by ref (an "oci://" URL,
// the same shape the teacher's internal/policy.OCISource resolves) into
// a per-ref cache directory under os.UserCacheDir, then returns the
// path to its single executable layer. Pulls are content-addressed by
// ref so a second Generate run against the same plugin version reuses
// the cached binary instead of re-fetching it.
func ResolveOCIRef(ctx context.Context, ref string) (string, error) {
	image := strings.TrimPrefix(ref, "oci://")
	if image == "" {
		return "", fmt.Errorf("invalid oci_ref %q", ref)
	}

	dest, err := cacheDirFor(image)
	if err != nil {
		return "", err
	}

	if bin, ok := existingBinary(dest); ok {
		return bin, nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating plugin cache dir: %w", err)
	}

	repo, err := remote.NewRepository(image)
	if err != nil {
		return "", fmt.Errorf("creating OCI repository client for %q: %w", image, err)
	}

	fs, err := file.New(dest)
	if err != nil {
		return "", fmt.Errorf("creating local OCI store at %q: %w", dest, err)
	}
	defer fs.Close()

	if _, err := oras.Copy(ctx, repo, image, fs, image, oras.DefaultCopyOptions); err != nil {
		return "", fmt.Errorf("pulling plugin artifact %q: %w", image, err)
	}

	bin, ok := existingBinary(dest)
	if !ok {
		return "", fmt.Errorf("plugin artifact %q has no executable layer in %s", image, dest)
	}
	return bin, nil
}

// cacheDirFor maps an OCI image reference to a stable, collision-free
// local directory keyed by its SHA-256 so ":" and "/" in the reference
// never have to survive into a path.
func cacheDirFor(image string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	sum := sha256.Sum256([]byte(image))
	return filepath.Join(base, "cigen", "plugins", hex.EncodeToString(sum[:])), nil
}

// existingBinary returns the first regular, executable file found
// directly under dir, if any.
func existingBinary(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Mode()&0o111 != 0 {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
