// Package skipcache implements the skip/exists-marker backend the step
// synthesizer's skip-check and exists-marker steps read and write
// (spec.md 4.6 step 2 and 8, §5's "skip-cache storage: native-provider
// cache, Redis, S3-compatible"). Keys are idempotent sentinels, so
// concurrent writers racing to mark the same key are safe by
// construction — Put is expected to be a plain overwrite, not a
// compare-and-swap.
package skipcache

import "context"

// Backend is satisfied by every skip-cache storage implementation.
type Backend interface {
	// Has reports whether key has previously been marked done.
	Has(ctx context.Context, key string) (bool, error)
	// Put marks key as done.
	Put(ctx context.Context, key string) error
}
