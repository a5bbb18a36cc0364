package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/continuum/pkg/core"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".cache")

		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load should self-heal, got %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Ignores Other Versions", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}
		content := `{"version": 99, "entries": {"a.md": {"document": {"id": "a", "key": "a.md"}}}}`
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected outdated index to be dropped, got %d entries", c.Len())
		}
	})
}

func TestCache_PersistAndFreshness(t *testing.T) {
	tmpDir := t.TempDir()
	mtime := time.Date(2026, 1, 1, 0, 0, 0, 123, time.UTC)
	doc := core.CanonicalDocument{ID: "a", Key: "a.md", Governed: true, Content: "body"}

	c := newCache(tmpDir, ".cache")
	c.Set("a.md", doc, mtime)
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := newCache(tmpDir, ".cache")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, hit := reloaded.Get("a.md", mtime)
	if !hit {
		t.Fatal("expected hit for same mtime")
	}
	if got.Key != "a.md" || !got.Governed || got.Content != "body" {
		t.Errorf("unexpected cached doc: %+v", got)
	}

	if _, hit := reloaded.Get("a.md", mtime.Add(time.Second)); hit {
		t.Error("expected miss for newer mtime")
	}

	reloaded.Prune(map[string]bool{})
	if reloaded.Len() != 0 {
		t.Errorf("expected prune to drop entry, got %d", reloaded.Len())
	}
}
