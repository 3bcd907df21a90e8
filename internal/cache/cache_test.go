package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_MemoryOnly(t *testing.T) {
	cache, err := New(Config{TTL: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	key := "test-key"
	data := []byte("test-data")

	if err := cache.Set(ctx, key, data); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected to find cached value")
	}
	if string(got) != string(data) {
		t.Errorf("expected %s, got %s", data, got)
	}

	if cache.Dir() != "" {
		t.Errorf("expected memory-only cache, got dir %q", cache.Dir())
	}
}

func TestCache_FileBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	cache, err := New(Config{Dir: dir, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	key := "https://archive.ubuntu.com/ubuntu/dists/jammy/main/binary-amd64/Packages.gz"
	data := []byte("Package: foo\n")

	if err := cache.Set(ctx, key, data); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a second cache over the same directory has an empty memory layer
	other, err := New(Config{Dir: dir, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, ok := other.Get(ctx, key)
	if !ok {
		t.Fatal("expected to find cached value from file")
	}
	if string(got) != string(data) {
		t.Errorf("expected %s, got %s", data, got)
	}
}

func TestCache_Expiration(t *testing.T) {
	cache, err := New(Config{Dir: t.TempDir(), TTL: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	key := "expire-test"

	if err := cache.Set(ctx, key, []byte("expires soon")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok := cache.Get(ctx, key); !ok {
		t.Fatal("expected to find cached value")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get(ctx, key); ok {
		t.Error("expected cached value to be expired")
	}
	if stats := cache.Stats(ctx); stats.FileEntries != 0 {
		t.Errorf("expected expired file to be removed, got %d file entries", stats.FileEntries)
	}
}

func TestCache_Delete(t *testing.T) {
	cache, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	key := "delete-test"

	_ = cache.Set(ctx, key, []byte("to be deleted"))
	_ = cache.Delete(ctx, key)

	if _, ok := cache.Get(ctx, key); ok {
		t.Error("expected cached value to be deleted")
	}
}

func TestCache_Clear(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(Config{Dir: dir, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_ = cache.Set(ctx, fmt.Sprintf("key%d", i), []byte("data"))
	}

	// unrelated files are left alone
	keep := filepath.Join(dir, "README")
	if err := os.WriteFile(keep, []byte("keep"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if _, ok := cache.Get(ctx, fmt.Sprintf("key%d", i)); ok {
			t.Errorf("expected key%d to be cleared", i)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("expected unrelated file to survive: %v", err)
	}
}

func TestCache_Stats(t *testing.T) {
	cache, err := New(Config{Dir: t.TempDir(), TTL: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	_ = cache.Set(ctx, "stat1", []byte("data1"))
	_ = cache.Set(ctx, "stat2", []byte("data2"))

	stats := cache.Stats(ctx)
	if stats.MemoryEntries != 2 {
		t.Errorf("expected 2 memory entries, got %d", stats.MemoryEntries)
	}
	if stats.FileEntries != 2 {
		t.Errorf("expected 2 file entries, got %d", stats.FileEntries)
	}
}

func TestCache_Prune(t *testing.T) {
	cache, err := New(Config{TTL: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	_ = cache.Set(ctx, "prune1", []byte("data1"))
	_ = cache.Set(ctx, "prune2", []byte("data2"))

	time.Sleep(100 * time.Millisecond)

	pruned, err := cache.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 2 {
		t.Errorf("expected 2 pruned entries, got %d", pruned)
	}
	if stats := cache.Stats(ctx); stats.MemoryEntries != 0 {
		t.Errorf("expected 0 memory entries after prune, got %d", stats.MemoryEntries)
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	cache, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if cache.TTL() != DefaultTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultTTL, cache.TTL())
	}
}

func TestHashKey(t *testing.T) {
	hash1 := hashKey("test-key")
	if hash1 != hashKey("test-key") {
		t.Error("expected same hash for same input")
	}
	if hash1 == hashKey("different-key") {
		t.Error("expected different hash for different input")
	}
	if len(hash1) != 32 {
		t.Errorf("expected hash length 32, got %d", len(hash1))
	}
}

func TestTransport(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "hello")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c, err := New(Config{Dir: t.TempDir(), TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Transport: NewTransport(c, nil)}

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := client.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode, string(body)
	}

	for i := 0; i < 2; i++ {
		status, body := get("/ok")
		if status != http.StatusOK || body != "hello" {
			t.Errorf("unexpected response %d %q", status, body)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 upstream request for cached GET, got %d", n)
	}

	for i := 0; i < 2; i++ {
		if status, _ := get("/missing"); status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("expected error responses to bypass the cache, got %d upstream requests", n)
	}

	resp, err := client.Post(server.URL+"/ok", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if n := hits.Load(); n != 4 {
		t.Errorf("expected POST to bypass the cache, got %d upstream requests", n)
	}
}
