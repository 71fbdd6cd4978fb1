package stimuli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dapello/brainio/core"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v\n", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v\n", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v\n", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v\n", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip: %v\n", err)
	}
}

func TestLoadTableAndArchive(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "hvm.csv")
	table := "image_id,category_name,filename\nim1,car,images/im1.png\nim2,face,im2.png\n"
	if err := os.WriteFile(csvPath, []byte(table), 0644); err != nil {
		t.Fatalf("write csv: %v\n", err)
	}
	zipPath := filepath.Join(dir, "hvm.zip")
	writeZip(t, zipPath, map[string]string{"images/im1.png": "png1", "im2.png": "png2"})

	s, err := Load("dicarlo.hvm", csvPath, zipPath, filepath.Join(dir, "extracted"))
	if err != nil {
		t.Fatalf("unable to load stimulus set: %v\n", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 stimuli, got %d\n", s.Len())
	}
	row, err := s.Get("im2")
	if err != nil {
		t.Fatalf("get: %v\n", err)
	}
	if row["category_name"] != "face" {
		t.Errorf("bad row %v\n", row)
	}
	categories, err := s.Column("category_name")
	if err != nil {
		t.Fatalf("column: %v\n", err)
	}
	if diff := cmp.Diff([]string{"car", "face"}, categories); diff != "" {
		t.Errorf("column mismatch (-want +got):\n%s", diff)
	}
	p, err := s.ImagePath("im1")
	if err != nil {
		t.Fatalf("image path: %v\n", err)
	}
	content, err := os.ReadFile(p)
	if err != nil || string(content) != "png1" {
		t.Errorf("bad extracted image %s: %q %v\n", p, content, err)
	}
	if diff := cmp.Diff([]string{"im1", "im2"}, s.ImageIDs()); diff != "" {
		t.Errorf("image ids mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.Get("im3"); !core.IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown image, got %v\n", err)
	}
	if _, err := s.Column("nope"); !core.IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown column, got %v\n", err)
	}
}

func TestArchiveOnly(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "set.zip")
	writeZip(t, zipPath, map[string]string{"a.jpg": "a", "b.jpg": "b"})
	s, err := Load("lab.set", "", zipPath, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("unable to load archive-only set: %v\n", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 images, got %d\n", s.Len())
	}
	if _, err := s.ImagePath("b"); err != nil {
		t.Errorf("expected image b: %v\n", err)
	}
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../evil.txt": "gotcha"})
	target := filepath.Join(dir, "sub")
	if _, err := Extract(zipPath, target); err == nil {
		t.Fatalf("expected error for entry escaping target directory\n")
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); !os.IsNotExist(err) {
		t.Fatalf("escaping entry was written\n")
	}
}
