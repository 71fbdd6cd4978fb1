package core

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileLarge(t *testing.T) {
	content := make([]byte, 3*HashChunkSize+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "large")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v\n", err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v\n", err)
	}
	sum := sha1.Sum(content)
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Errorf("HashFile = %s, want %s\n", got, want)
	}
	if !SameDigest(got, "  "+got+" ") {
		t.Errorf("SameDigest should ignore surrounding space\n")
	}
}

func TestHashFileNonexistent(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("HashFile should fail for nonexistent file\n")
	}
}
