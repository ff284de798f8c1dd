package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datapub/config"
	"datapub/logger"

	"github.com/djherbis/times"
)

// ErrRootNotFound reports a data directory that does not exist or is not a
// directory.
var ErrRootNotFound = errors.New("data root not found")

// RecordFile describes one discovered record file. RelPath uses forward
// slashes so it can double as the remote destination path.
type RecordFile struct {
	Path    string
	RelPath string
	Size    int64
	ModTime time.Time
}

// Scan discovers every file under root matching the configured extension and
// include/exclude patterns. The result is sorted by relative path so progress
// reporting and upload order are stable across runs. An existing root with no
// matching files yields an empty, non-nil slice.
func Scan(ctx context.Context, root string, cfg *config.Config) ([]RecordFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	matcher := NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	ext := strings.ToLower(cfg.FileExtension)

	files := []RecordFile{}
	err = walk(ctx, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warnf("Failed to access %s: %v", path, err)
			return nil
		}
		if d == nil || d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ext {
			return nil
		}
		if !matcher.ShouldInclude(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			logger.Warnf("Failed to stat %s: %v", path, err)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			logger.Warnf("Failed to resolve relative path for %s: %v", path, err)
			return nil
		}
		files = append(files, RecordFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Size:    fi.Size(),
			ModTime: modTime(fi),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func modTime(fi os.FileInfo) time.Time {
	ts := times.Get(fi)
	return ts.ModTime()
}
