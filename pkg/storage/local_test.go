package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tundeabiodun/handyfix-backend/pkg/config"
)

// Minimal valid PNG header plus IEND; enough for mimetype sniffing.
var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0, 0, 0, 0x0d, 'I', 'H', 'D', 'R',
	0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0,
	0x90, 0x77, 0x53, 0xde,
	0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xae, 0x42, 0x60, 0x82,
}

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(config.UploadsConfig{
		Dir:           dir,
		PublicBaseURL: "/uploads",
		MaxBytes:      1024,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSaveWritesFileAndReturnsURL(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(context.Background(), "before", pngBytes, ".png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/before_") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}

	entries, err := os.ReadDir(store.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one stored file, got %d", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".png" {
		t.Fatalf("stored file should keep extension: %s", entries[0].Name())
	}
}

func TestRemoveDeletesStoredFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url, err := store.Save(ctx, "before", pngBytes, ".png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Remove(ctx, url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err := os.ReadDir(store.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir after remove, got %d files", len(entries))
	}

	// removing again is a no-op
	if err := store.Remove(ctx, url); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	// URLs outside the store are rejected
	if err := store.Remove(ctx, "/uploads/../../../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if err := store.Remove(ctx, "/elsewhere/file.png"); err == nil {
		t.Fatal("expected foreign url rejection")
	}
}

func TestSaveRejectsOversizedPayload(t *testing.T) {
	store := newTestStore(t)
	big := make([]byte, 2048)
	if _, err := store.Save(context.Background(), "x", big, ".bin"); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestSniffImage(t *testing.T) {
	ext, err := SniffImage(pngBytes)
	if err != nil {
		t.Fatalf("sniff png: %v", err)
	}
	if ext != ".png" {
		t.Fatalf("ext = %q, want .png", ext)
	}

	if _, err := SniffImage([]byte("plain text payload")); err == nil {
		t.Fatal("text payload should be rejected")
	}
	if _, err := SniffImage(nil); err == nil {
		t.Fatal("empty payload should be rejected")
	}
}
