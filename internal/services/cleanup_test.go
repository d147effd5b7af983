package services

import (
	"context"
	"strings"
	"testing"

	"github.com/dr-rompecabezas/lms-backend/internal/storage"
)

func seedTree(t *testing.T, store storage.Store, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); err != nil {
			t.Fatalf("Save(%q): %v", key, err)
		}
	}
}

func TestListTreeFiles(t *testing.T) {
	log := testLogger(t)
	store, err := storage.NewLocalStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	seedTree(t, store,
		"h5p_content/h5p_1_quiz/h5p.json",
		"h5p_content/h5p_1_quiz/content/content.json",
		"h5p_content/h5p_1_quiz/lib/a/b.js",
		"h5p_content/other_dir/keep.txt",
	)

	files, err := listTreeFiles(context.Background(), store, "h5p_content/h5p_1_quiz")
	if err != nil {
		t.Fatalf("listTreeFiles: %v", err)
	}
	want := []string{
		"h5p_content/h5p_1_quiz/h5p.json",
		"h5p_content/h5p_1_quiz/content/content.json",
		"h5p_content/h5p_1_quiz/lib/a/b.js",
	}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(files), len(want), files)
	}
	for _, key := range want {
		if _, ok := files[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestDeleteExtractedTree(t *testing.T) {
	log := testLogger(t)
	store, err := storage.NewLocalStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()
	seedTree(t, store,
		"scorm_content/pkg_1_golf/index.html",
		"scorm_content/pkg_1_golf/shared/a.js",
		"scorm_content/pkg_2_other/index.html",
	)

	deleteExtractedTree(ctx, store, log, "scorm_content", "pkg_1_golf")

	for _, key := range []string{"scorm_content/pkg_1_golf/index.html", "scorm_content/pkg_1_golf/shared/a.js"} {
		if exists, _ := store.Exists(ctx, key); exists {
			t.Errorf("%q still exists after tree delete", key)
		}
	}
	if exists, _ := store.Exists(ctx, "scorm_content/pkg_2_other/index.html"); !exists {
		t.Error("sibling tree was deleted")
	}
}

func TestDeleteExtractedTreeRefusesSuspiciousPaths(t *testing.T) {
	log := testLogger(t)
	store, err := storage.NewLocalStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()
	seedTree(t, store, "scorm_content/pkg_1_golf/index.html")

	for _, bad := range []string{"", "../pkg_1_golf", "/pkg_1_golf", "a/../.."} {
		deleteExtractedTree(ctx, store, log, "scorm_content", bad)
	}
	if exists, _ := store.Exists(ctx, "scorm_content/pkg_1_golf/index.html"); !exists {
		t.Error("suspicious path deletion touched real content")
	}
}
