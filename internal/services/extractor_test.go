package services

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dr-rompecabezas/lms-backend/internal/logger"
	"github.com/dr-rompecabezas/lms-backend/internal/storage"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		header := &zip.FileHeader{Name: name, Method: zip.Store}
		fw, err := w.CreateHeader(header)
		if err != nil {
			t.Fatalf("CreateHeader(%q): %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Write(%q): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeMemberName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain file", "index.html", "index.html", true},
		{"nested file", "content/images/a.png", "content/images/a.png", true},
		{"backslash separators", "content\\images\\a.png", "content/images/a.png", true},
		{"redundant segments", "a/./b.txt", "a/b.txt", true},
		{"internal dotdot that stays inside", "a/b/../c.txt", "a/c.txt", true},
		{"empty", "", "", false},
		{"dot", ".", "", false},
		{"collapses to dot", "a/..", "", false},
		{"absolute", "/etc/passwd", "", false},
		{"leading dotdot", "../../etc/passwd", "", false},
		{"backslash traversal", "..\\..\\evil.exe", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeMemberName(tt.in)
			if ok != tt.ok {
				t.Fatalf("normalizeMemberName(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("normalizeMemberName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractionDirName(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	tests := []struct {
		name        string
		prefix      string
		packageFile string
		want        string
	}{
		{"simple", "package", "golf.zip", "package_11111111-2222-3333-4444-555555555555_golf"},
		{"nested key", "h5p", "h5p_packages/x/quiz.h5p", "h5p_11111111-2222-3333-4444-555555555555_quiz"},
		{"windows separators", "package", "uploads\\course.zip", "package_11111111-2222-3333-4444-555555555555_course"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractionDirName(tt.prefix, id, tt.packageFile); got != tt.want {
				t.Errorf("ExtractionDirName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateArchive(t *testing.T) {
	log := testLogger(t)
	store, err := storage.NewLocalStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	e := NewExtractor(store, log)

	good := makeZip(t, map[string]string{"index.html": "<html></html>"})
	if err := e.ValidateArchive(good); err != nil {
		t.Fatalf("ValidateArchive(good) = %v", err)
	}

	if err := e.ValidateArchive([]byte("this is not a zip")); err == nil {
		t.Fatal("ValidateArchive(garbage) = nil, want error")
	}

	// Flip a payload byte so the stored CRC no longer matches.
	corrupt := makeZip(t, map[string]string{"index.html": "CORRUPTME-PAYLOAD"})
	idx := bytes.Index(corrupt, []byte("CORRUPTME-PAYLOAD"))
	if idx < 0 {
		t.Fatal("payload not found in archive")
	}
	corrupt[idx] ^= 0xff
	if err := e.ValidateArchive(corrupt); err == nil {
		t.Fatal("ValidateArchive(corrupt) = nil, want error")
	}
}

func TestExtract(t *testing.T) {
	log := testLogger(t)
	root := t.TempDir()
	store, err := storage.NewLocalStore(root, log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	e := NewExtractor(store, log)

	archive := makeZip(t, map[string]string{
		"imsmanifest.xml":   "<manifest/>",
		"index.html":        "<html></html>",
		"shared/player.js":  "var x;",
		"../../escape.html": "evil",
		"/abs.html":         "evil",
	})

	extraction, err := e.Extract(context.Background(), archive, "scorm_content", "package_x_demo")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if extraction.ManifestXML == nil {
		t.Error("manifest was not captured")
	}
	wantKeys := []string{
		"scorm_content/package_x_demo/imsmanifest.xml",
		"scorm_content/package_x_demo/index.html",
		"scorm_content/package_x_demo/shared/player.js",
	}
	if len(extraction.Files) != len(wantKeys) {
		t.Fatalf("extracted %d files, want %d: %v", len(extraction.Files), len(wantKeys), extraction.Files)
	}
	for _, key := range wantKeys {
		if _, ok := extraction.Files[key]; !ok {
			t.Errorf("missing extracted key %q", key)
		}
		exists, err := store.Exists(context.Background(), key)
		if err != nil || !exists {
			t.Errorf("store.Exists(%q) = %v, %v", key, exists, err)
		}
	}
	for key := range extraction.Files {
		if strings.Contains(key, "escape") || strings.Contains(key, "abs") {
			t.Errorf("traversal member was extracted: %q", key)
		}
	}
}

func TestExtractH5PLibraryDetection(t *testing.T) {
	log := testLogger(t)
	store, err := storage.NewLocalStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	e := NewExtractor(store, log)

	withLibs := makeZip(t, map[string]string{
		"h5p.json":                     `{"title":"Quiz","mainLibrary":"H5P.Quiz"}`,
		"content/content.json":         "{}",
		"H5P.Quiz-1.0/library.json":    "{}",
		"H5P.Quiz-1.0/scripts/quiz.js": "var q;",
	})
	extraction, err := e.Extract(context.Background(), withLibs, "h5p_content", "h5p_x_quiz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !extraction.HasLibraryFiles {
		t.Error("HasLibraryFiles = false, want true")
	}
	if extraction.H5PJSON == nil {
		t.Error("h5p.json was not captured")
	}

	reuseOnly := makeZip(t, map[string]string{
		"h5p.json":             `{"title":"Quiz","mainLibrary":"H5P.Quiz"}`,
		"content/content.json": "{}",
	})
	extraction, err = e.Extract(context.Background(), reuseOnly, "h5p_content", "h5p_y_quiz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if extraction.HasLibraryFiles {
		t.Error("HasLibraryFiles = true for a reuse-only export, want false")
	}
}
