package aggregate

import (
	"bytes"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

var openMmapReader = mmap.Open

// openContent returns a reader over the file's bytes. In auto mode files at
// or above mmapMinSize are read through mmap, falling back to a plain open
// when mapping fails (network mounts, zero-length files).
func openContent(path, mode string, mmapMinSize, size int64) (io.ReadCloser, error) {
	if mmapMinSize <= 0 {
		mmapMinSize = 128 * 1024
	}
	switch mode {
	case "mmap":
		return readContentMmap(path, size)
	case "stream":
		return os.Open(path)
	default:
		if size >= mmapMinSize {
			if r, err := readContentMmap(path, size); err == nil {
				return r, nil
			}
		}
		return os.Open(path)
	}
}

func readContentMmap(path string, size int64) (io.ReadCloser, error) {
	r, err := openMmapReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if size <= 0 {
		size = int64(r.Len())
	}
	buf := make([]byte, size)
	if size > 0 {
		if _, err := r.ReadAt(buf, 0); err != nil {
			return nil, err
		}
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

// readSample returns up to maxSize leading bytes, used for content sniffing.
func readSample(path string, maxSize int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, maxSize)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
