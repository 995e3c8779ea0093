package skipcache

import (
	"context"
	"testing"
)

func TestLocalPutThenHas(t *testing.T) {
	l := &Local{Dir: t.TempDir()}
	ctx := context.Background()

	ok, err := l.Has(ctx, "linux-amd64-build-abc")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if ok {
		t.Fatal("expected key not present yet")
	}

	if err := l.Put(ctx, "linux-amd64-build-abc"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err = l.Has(ctx, "linux-amd64-build-abc")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !ok {
		t.Fatal("expected key present after put")
	}
}

func TestLocalSanitizesKeyPathSeparators(t *testing.T) {
	l := &Local{Dir: t.TempDir()}
	ctx := context.Background()
	if err := l.Put(ctx, "linux/amd64/build"); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := l.Has(ctx, "linux/amd64/build")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !ok {
		t.Fatal("expected sanitized key to round-trip through Has")
	}
}
