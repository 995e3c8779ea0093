package skipcache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisPutThenHas(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := &Redis{Client: client}
	ctx := context.Background()

	ok, err := r.Has(ctx, "linux-amd64-build")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if ok {
		t.Fatal("expected key not present yet")
	}

	if err := r.Put(ctx, "linux-amd64-build"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err = r.Has(ctx, "linux-amd64-build")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !ok {
		t.Fatal("expected key present after put")
	}
}
