package hasher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSupportedAlgorithms(t *testing.T) {
	for _, algo := range Supported() {
		h, err := New(algo)
		if err != nil {
			t.Fatalf("%s: %v", algo, err)
		}
		if h == nil {
			t.Fatalf("%s: nil hash", algo)
		}
	}
}

func TestNewUnsupported(t *testing.T) {
	if _, err := New("crc32"); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}

func TestFileKnownSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	digest, err := File(path, "sha256")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if digest != want {
		t.Fatalf("expected %s, got %s", want, digest)
	}
}

func TestFileMatchesStreaming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	content := strings.Repeat(`{"category":"x"}`+"\n", 40000)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, algo := range Supported() {
		fromFile, err := File(path, algo)
		if err != nil {
			t.Fatalf("%s file: %v", algo, err)
		}
		h, err := New(algo)
		if err != nil {
			t.Fatalf("%s new: %v", algo, err)
		}
		src, err := os.Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := Drain(h, src); err != nil {
			t.Fatalf("%s drain: %v", algo, err)
		}
		src.Close()
		if streamed := Sum(h); streamed != fromFile {
			t.Fatalf("%s: drain digest %s != file digest %s", algo, streamed, fromFile)
		}
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "absent"), "sha256"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
