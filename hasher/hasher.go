package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

const (
	bufferSmallSize      = 32 * 1024
	bufferLargeSize      = 128 * 1024
	largeBufferThreshold = 256 * 1024
)

var bufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, bufferSmallSize)
		return &buf
	},
}

var bufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, bufferLargeSize)
		return &buf
	},
}

// Supported lists the digest algorithms New accepts.
func Supported() []string {
	return []string{"sha256", "xxh64", "blake3"}
}

func New(algo string) (hash.Hash, error) {
	switch algo {
	case "sha256":
		return sha256.New(), nil
	case "xxh64":
		return xxhash.New(), nil
	case "blake3":
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %s", algo)
	}
}

func Sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Drain copies the remainder of src into h using a pooled buffer. Used to
// finish a digest when line iteration stopped before end of file.
func Drain(h hash.Hash, src io.Reader) error {
	bufPtr := bufferSmallPool.Get().(*[]byte)
	_, err := io.CopyBuffer(h, src, *bufPtr)
	bufferSmallPool.Put(bufPtr)
	return err
}

// File computes the digest of the file at path with the given algorithm.
func File(path, algo string) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	bufferPool := &bufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= largeBufferThreshold {
		bufferPool = &bufferLargePool
	}
	bufPtr := bufferPool.Get().(*[]byte)
	_, err = io.CopyBuffer(h, file, *bufPtr)
	bufferPool.Put(bufPtr)
	if err != nil {
		return "", err
	}
	return Sum(h), nil
}
