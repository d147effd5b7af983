package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dr-rompecabezas/lms-backend/internal/logger"
)

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	root := t.TempDir()
	store, err := NewLocalStore(root, log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store, root
}

func TestLocalStoreSaveOpen(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "a/b/c.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r, err := store.Open(ctx, "a/b/c.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil || string(data) != "hello" {
		t.Errorf("read = %q, %v", data, err)
	}

	if _, err := store.Open(ctx, "a/missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(missing) = %v, want ErrNotFound", err)
	}
	// Opening a directory is a miss, not a stream of directory bytes.
	if _, err := store.Open(ctx, "a/b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(dir) = %v, want ErrNotFound", err)
	}
}

func TestLocalStoreDeletePrunesEmptyDirs(t *testing.T) {
	store, root := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "x/y/z/file.txt", strings.NewReader("data")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "x/y/z/file.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "x")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("empty parent dirs were not pruned: %v", err)
	}
	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "x/y/z/file.txt"); err != nil {
		t.Errorf("Delete(missing) = %v", err)
	}
}

func TestLocalStoreListDir(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"tree/a.txt", "tree/b.txt", "tree/sub/c.txt"} {
		if err := store.Save(ctx, key, strings.NewReader("x")); err != nil {
			t.Fatalf("Save(%q): %v", key, err)
		}
	}

	dirs, files, err := store.ListDir(ctx, "tree")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(dirs) != 1 || dirs[0] != "sub" {
		t.Errorf("dirs = %v", dirs)
	}
	if len(files) != 2 || files[0] != "a.txt" || files[1] != "b.txt" {
		t.Errorf("files = %v", files)
	}

	dirs, files, err = store.ListDir(ctx, "does/not/exist")
	if err != nil || dirs != nil || files != nil {
		t.Errorf("ListDir(missing) = %v, %v, %v; want empty, no error", dirs, files, err)
	}
}

func TestLocalStoreURL(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.URL("any/key"); !errors.Is(err, ErrNoURL) {
		t.Errorf("URL = %v, want ErrNoURL", err)
	}
}
