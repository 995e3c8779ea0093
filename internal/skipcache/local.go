package skipcache

import (
	"context"
	"os"
	"path/filepath"
)

// Local is the "native-provider cache" backend: it stores each key as
// a zero-byte sentinel file, the on-disk variant spec.md 6 describes,
// suitable for providers whose native cache action can persist a
// directory between runs without any external service.
type Local struct {
	Dir string
}

// Has reports whether key's sentinel file exists.
func (l *Local) Has(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Put creates key's sentinel file, truncating it if present.
func (l *Local) Put(_ context.Context, key string) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(l.path(key))
	if err != nil {
		return err
	}
	return f.Close()
}

func (l *Local) path(key string) string {
	return filepath.Join(l.Dir, sanitize(key))
}

// sanitize replaces path separators so a cache key containing '/'
// can't escape Dir.
func sanitize(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '/' || key[i] == '\\' {
			out[i] = '_'
		} else {
			out[i] = key[i]
		}
	}
	return string(out)
}
