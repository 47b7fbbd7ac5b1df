package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const cacheSource = `function first(items) {
  let total = 0;
  for (const item of items) {
    total += item;
  }
  return total;
}

class Box {
  constructor(value) {
    this.value = value;
  }
}
`

func TestNewParseCache(t *testing.T) {
	cache := NewParseCache()
	if cache == nil {
		t.Fatal("NewParseCache returned nil")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestParseCachePutAndGet(t *testing.T) {
	cache := NewParseCache()
	cache.Put("a.js", &FileParseResult{Path: "a.js"})

	got, ok := cache.Get("a.js")
	if !ok {
		t.Fatal("expected cache hit for a.js")
	}
	if got.Path != "a.js" {
		t.Fatalf("unexpected path: %s", got.Path)
	}

	if _, ok := cache.Get("missing.js"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestParseCacheSealPreventsWrite(t *testing.T) {
	cache := NewParseCache()
	cache.Put("a.js", &FileParseResult{Path: "a.js"})
	cache.Seal()
	cache.Put("b.js", &FileParseResult{Path: "b.js"})

	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry after seal, got %d", cache.Len())
	}
}

func TestParseCacheSealedConcurrentReads(t *testing.T) {
	cache := NewParseCache()
	for _, name := range []string{"a.js", "b.js", "c.js"} {
		cache.Put(name, &FileParseResult{Path: name})
	}
	cache.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := cache.Get("b.js"); !ok {
				t.Error("expected cache hit")
			}
			_ = cache.Functions()
		}()
	}
	wg.Wait()
}

func TestParseCacheSkipped(t *testing.T) {
	cache := NewParseCache()
	cache.Put("bad.js", &FileParseResult{Path: "bad.js", ParseErr: errors.New("syntax error")})
	cache.Put("ok.js", &FileParseResult{Path: "ok.js"})

	skipped := cache.Skipped()
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped unit, got %d", len(skipped))
	}
	if skipped[0].FilePath != "bad.js" || skipped[0].Reason != "syntax error" {
		t.Fatalf("unexpected skipped unit: %+v", skipped[0])
	}
}

func TestPopulateParseCache(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.js")
	bad := filepath.Join(dir, "bad.js")
	if err := os.WriteFile(good, []byte(cacheSource), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("function broken( {\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.js")

	cache, err := PopulateParseCache(context.Background(), []string{good, bad, missing}, ParseCachePopulatorConfig{Concurrency: 2})
	if err != nil {
		t.Fatalf("PopulateParseCache failed: %v", err)
	}
	if cache.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", cache.Len())
	}

	r, ok := cache.Get(good)
	if !ok || r.ParseErr != nil {
		t.Fatalf("expected good.js to parse, got %+v", r)
	}
	if len(r.Types) != 1 {
		t.Errorf("expected 1 type in good.js, got %d", len(r.Types))
	}

	names := map[string]bool{}
	for _, fn := range cache.Functions() {
		names[fn.Definition.Name] = true
	}
	if !names["first"] {
		t.Errorf("expected function 'first' to be extracted, got %v", names)
	}

	failed := map[string]bool{}
	for _, s := range cache.Skipped() {
		if s.Unit == "" {
			failed[s.FilePath] = true
		}
	}
	if !failed[bad] || !failed[missing] {
		t.Errorf("expected bad.js and missing.js to be skipped, got %v", failed)
	}
}

func TestPopulateParseCacheCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	if err := os.WriteFile(path, []byte(cacheSource), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := PopulateParseCache(ctx, []string{path}, ParseCachePopulatorConfig{}); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
