package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenEmptyPathDisables(t *testing.T) {
	t.Parallel()
	c, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c != nil {
		t.Fatal("expected nil cache for empty path")
	}

	// nil cache methods degrade to ErrDisabled
	if _, err := c.Names(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Names on nil cache: %v", err)
	}
	if err := c.ReplaceNames(context.Background(), []string{"x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("ReplaceNames on nil cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil cache: %v", err)
	}
}

func TestReplaceAndReadBack(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "names.db")
	c, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.ReplaceNames(ctx, []string{"zebra-zone", "apple-annex"}); err != nil {
		t.Fatalf("ReplaceNames: %v", err)
	}

	got, err := c.Names(ctx)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(got) != 2 || got[0] != "apple-annex" || got[1] != "zebra-zone" {
		t.Fatalf("unexpected names: %v", got)
	}

	at, err := c.RefreshedAt(ctx)
	if err != nil {
		t.Fatalf("RefreshedAt: %v", err)
	}
	if at.IsZero() {
		t.Fatal("expected non-zero refreshed_at")
	}

	// replace drops old entries
	if err := c.ReplaceNames(ctx, []string{"only-one"}); err != nil {
		t.Fatalf("ReplaceNames: %v", err)
	}
	got, err = c.Names(ctx)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(got) != 1 || got[0] != "only-one" {
		t.Fatalf("unexpected names after replace: %v", got)
	}
}

func TestRefreshedAtEmpty(t *testing.T) {
	t.Parallel()
	c, err := Open(filepath.Join(t.TempDir(), "names.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	at, err := c.RefreshedAt(context.Background())
	if err != nil {
		t.Fatalf("RefreshedAt: %v", err)
	}
	if !at.IsZero() {
		t.Fatalf("expected zero time, got %v", at)
	}
}
