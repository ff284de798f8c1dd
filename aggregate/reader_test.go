package aggregate

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenContentModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	content := strings.Repeat(`{"category":"x"}`+"\n", 100)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	size := int64(len(content))

	for _, mode := range []string{"stream", "mmap", "auto"} {
		r, err := openContent(path, mode, 1, size)
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("%s read: %v", mode, err)
		}
		if string(data) != content {
			t.Fatalf("%s: content mismatch (%d bytes)", mode, len(data))
		}
	}
}

func TestOpenContentMissing(t *testing.T) {
	if _, err := openContent(filepath.Join(t.TempDir(), "absent"), "auto", 1, 10); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte("abcdef"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sample, err := readSample(path, 4)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if string(sample) != "abcd" {
		t.Fatalf("unexpected sample: %q", sample)
	}

	sample, err = readSample(path, 100)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if string(sample) != "abcdef" {
		t.Fatalf("short file should return all bytes: %q", sample)
	}
}
