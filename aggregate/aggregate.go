package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"datapub/config"
	"datapub/hasher"
	"datapub/logger"
	"datapub/scanner"

	"github.com/h2non/filetype"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

const (
	sniffBytes   = 261
	maxLineBytes = 8 * 1024 * 1024
)

// ParseWarning records one recovered per-line or per-file problem.
type ParseWarning struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason"`
}

// FileStat is the per-file slice of the aggregate, kept for the run summary
// and debug reporting.
type FileStat struct {
	RelPath string `json:"file"`
	Size    int64  `json:"size"`
	Records int    `json:"records"`
	Digest  string `json:"digest,omitempty"`
}

// Stats is the aggregate snapshot for one run. Categories carries occurrence
// counts; distinct-category semantics are the map's cardinality.
type Stats struct {
	Records    int
	Files      int
	TotalSize  int64
	Categories map[string]int
	Warnings   []ParseWarning
	FileStats  []FileStat
	NewestMod  time.Time
}

func (s *Stats) DistinctCategories() int {
	return len(s.Categories)
}

// SortedCategories returns the distinct labels in lexicographic order.
func (s *Stats) SortedCategories() []string {
	labels := make([]string, 0, len(s.Categories))
	for label := range s.Categories {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

type fileResult struct {
	stat       FileStat
	categories map[string]int
	warnings   []ParseWarning
}

// Run aggregates statistics across the discovered files with a bounded worker
// pool. Per-line and per-file failures are recorded as warnings and never
// abort the pass; file sizes come from scan-time metadata so a file full of
// malformed lines still contributes its bytes.
func Run(ctx context.Context, cfg *config.Config, files []scanner.RecordFile) (*Stats, error) {
	stats := &Stats{
		Files:      len(files),
		Categories: map[string]int{},
		FileStats:  make([]FileStat, 0, len(files)),
	}
	if len(files) == 0 {
		return stats, nil
	}

	workers := concurrencyFor(cfg)
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Aggregating records"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	progressCh := make(chan int, workers*4)
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		for delta := range progressCh {
			_ = bar.Add(delta)
		}
	}()

	filesChan := make(chan scanner.RecordFile, workers)
	go func() {
		defer close(filesChan)
		for _, f := range files {
			if ioLimiter != nil {
				if err := ioLimiter.Wait(ctx); err != nil {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case filesChan <- f:
			}
		}
	}()

	var mu sync.Mutex
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range filesChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res := processFile(f, cfg)
				mu.Lock()
				stats.Records += res.stat.Records
				stats.TotalSize += f.Size
				for label, count := range res.categories {
					stats.Categories[label] += count
				}
				stats.Warnings = append(stats.Warnings, res.warnings...)
				stats.FileStats = append(stats.FileStats, res.stat)
				if f.ModTime.After(stats.NewestMod) {
					stats.NewestMod = f.ModTime
				}
				mu.Unlock()
				progressCh <- 1
			}
		}()
	}

	wg.Wait()
	close(progressCh)
	progressWG.Wait()

	// Worker completion order is nondeterministic; restore scanner order.
	sort.Slice(stats.FileStats, func(i, j int) bool {
		return stats.FileStats[i].RelPath < stats.FileStats[j].RelPath
	})
	sort.Slice(stats.Warnings, func(i, j int) bool {
		if stats.Warnings[i].File != stats.Warnings[j].File {
			return stats.Warnings[i].File < stats.Warnings[j].File
		}
		return stats.Warnings[i].Line < stats.Warnings[j].Line
	})

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func processFile(f scanner.RecordFile, cfg *config.Config) fileResult {
	res := fileResult{
		stat:       FileStat{RelPath: f.RelPath, Size: f.Size},
		categories: map[string]int{},
	}

	if sample, err := readSample(f.Path, sniffBytes); err == nil {
		if kind, _ := filetype.Match(sample); kind != filetype.Unknown {
			res.warn(f.RelPath, 0, fmt.Sprintf("binary content (%s), no records parsed", kind.MIME.Value))
			return res
		}
	}

	content, err := openContent(f.Path, cfg.ReadMode, cfg.MmapMinSize, f.Size)
	if err != nil {
		res.warn(f.RelPath, 0, fmt.Sprintf("cannot open: %v", err))
		return res
	}
	defer content.Close()

	var source io.Reader = content
	digest := func() string { return "" }
	if cfg.DigestAlgorithm != "" && cfg.DigestAlgorithm != "none" {
		if h, err := hasher.New(cfg.DigestAlgorithm); err != nil {
			res.warn(f.RelPath, 0, err.Error())
		} else {
			source = io.TeeReader(content, h)
			digest = func() string {
				// Bytes still unread by the scanner have not passed
				// through the tee yet; hash them directly.
				_ = hasher.Drain(h, content)
				return hasher.Sum(h)
			}
		}
	}
	reader := bufio.NewReader(source)

	scan := bufio.NewScanner(reader)
	scan.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := bytes.TrimSpace(scan.Bytes())
		if len(line) == 0 {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal(line, &record); err != nil {
			res.warn(f.RelPath, lineNo, "malformed record")
			continue
		}
		res.stat.Records++
		if raw, ok := record["category"]; ok && raw != nil {
			res.categories[categoryLabel(raw)]++
		}
	}
	if err := scan.Err(); err != nil {
		res.warn(f.RelPath, lineNo+1, fmt.Sprintf("read aborted: %v", err))
	}
	res.stat.Digest = digest()

	logger.Debugf("Aggregated %s: %d records, %d bytes", f.RelPath, res.stat.Records, f.Size)
	return res
}

func (r *fileResult) warn(file string, line int, reason string) {
	if line > 0 {
		logger.Warnf("%s:%d: %s", file, line, reason)
	} else {
		logger.Warnf("%s: %s", file, reason)
	}
	r.warnings = append(r.warnings, ParseWarning{File: file, Line: line, Reason: reason})
}

// categoryLabel treats the category value as an opaque label regardless of
// its JSON type.
func categoryLabel(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func concurrencyFor(cfg *config.Config) int {
	if cfg.ConcurrencySet {
		return cfg.ConcurrencyLevel
	}
	numCPU := runtime.NumCPU()
	switch cfg.NiceLevel {
	case "high":
		return numCPU
	case "low":
		return 1
	default:
		if numCPU/2 < 1 {
			return 1
		}
		return numCPU / 2
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("DATAPUB_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
