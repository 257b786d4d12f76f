package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set(ctx, "k", []byte("v"))

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("got %q/%v, want v/true", got, ok)
	}

	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry survived delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Millisecond)

	c.Set(ctx, "k", []byte("v"))
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry survived past its TTL")
	}
}
