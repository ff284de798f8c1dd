// Package publish orchestrates a publication run: validate the local tree,
// authenticate, ensure the remote collection, aggregate statistics, upload
// the manifest, then upload every record file.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datapub/aggregate"
	"datapub/config"
	"datapub/hub"
	"datapub/logger"
	"datapub/manifest"
	"datapub/scanner"
	"datapub/telemetry"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// HubClient is the remote surface the coordinator needs. *hub.Client
// implements it; tests substitute fakes.
type HubClient interface {
	Whoami(ctx context.Context) (*hub.Identity, error)
	EnsureDataset(ctx context.Context, repo string, private bool) error
	UploadBlob(ctx context.Context, content []byte, dst, repo string) error
	UploadFile(ctx context.Context, local, dst, repo string) error
}

type stage string

const (
	stageValidating         stage = "validating"
	stageAuthenticating     stage = "authenticating"
	stageEnsuringCollection stage = "ensuring collection"
	stageAggregating        stage = "aggregating"
	stageBuildingManifest   stage = "building manifest"
	stageUploadingManifest  stage = "uploading manifest"
	stageUploadingFiles     stage = "uploading files"
	stageSummarizing        stage = "summarizing"
)

type Coordinator struct {
	cfg    *config.Config
	client HubClient
	creds  hub.CredentialProvider
	tel    *telemetry.Emitter
}

// New builds a coordinator. tel may be nil.
func New(cfg *config.Config, client HubClient, creds hub.CredentialProvider, tel *telemetry.Emitter) *Coordinator {
	return &Coordinator{cfg: cfg, client: client, creds: creds, tel: tel}
}

// Run executes one publication. Fatal failures return an error; a run with
// per-file upload failures returns a summary with the failed relative paths
// and a nil error.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	// Fail fast on local problems before spending a network round-trip.
	c.enter(stageValidating)
	files, err := scanner.Scan(ctx, c.cfg.DataDir, c.cfg)
	if err != nil {
		if errors.Is(err, scanner.ErrRootNotFound) {
			return nil, &InvalidInputError{Dir: c.cfg.DataDir, Err: err}
		}
		return nil, err
	}
	if len(files) == 0 {
		return nil, &InvalidInputError{Dir: c.cfg.DataDir, Err: ErrEmptyDataset}
	}
	logger.Infof("Discovered %d record files under %s", len(files), c.cfg.DataDir)

	c.enter(stageAuthenticating)
	if _, ok := c.creds.CurrentToken(); !ok {
		return nil, &hub.AuthError{Message: fmt.Sprintf("no access token available (set %s)", c.cfg.TokenEnv)}
	}
	identity, err := c.client.Whoami(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infof("Authenticated as %s", identity.Name)

	repo := resolveRepo(c.cfg, identity.Name)

	c.enter(stageEnsuringCollection)
	if err := c.client.EnsureDataset(ctx, repo, c.cfg.Private); err != nil {
		// The collection may already exist with equivalent settings;
		// uploads will surface any real access problem.
		logger.Warnf("Could not ensure collection %s: %v", repo, err)
	}

	c.enter(stageAggregating)
	stats, err := aggregate.Run(ctx, c.cfg, files)
	if err != nil {
		return nil, err
	}
	logger.Infof("Aggregated %s records across %d files (%s, %d categories)",
		humanize.Comma(int64(stats.Records)), stats.Files,
		humanize.IBytes(uint64(stats.TotalSize)), stats.DistinctCategories())

	c.enter(stageBuildingManifest)
	doc := manifest.Build(stats, time.Now().UTC(), repo, c.cfg.CategoryPreview)

	summary := &Summary{
		Repo:       repo,
		Account:    identity.Name,
		Records:    stats.Records,
		Files:      stats.Files,
		Categories: stats.DistinctCategories(),
		TotalSize:  stats.TotalSize,
		Warnings:   len(stats.Warnings),
		DryRun:     c.cfg.DryRun,
	}

	if c.cfg.DryRun {
		c.enter(stageSummarizing)
		summary.Duration = time.Since(start)
		c.emitSummary(summary)
		return summary, nil
	}

	// The manifest is the one artifact the publication cannot do without;
	// its upload failure aborts the run before any file upload.
	c.enter(stageUploadingManifest)
	if err := c.client.UploadBlob(ctx, []byte(doc), c.cfg.ManifestName, repo); err != nil {
		return nil, err
	}
	logger.Infof("Uploaded manifest %s", c.cfg.ManifestName)

	c.enter(stageUploadingFiles)
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Uploading files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)
	var limiter *rate.Limiter
	if c.cfg.MaxIOPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.MaxIOPerSecond), c.cfg.MaxIOPerSecond)
	}
	for _, f := range files {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		default:
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
		}
		err := c.client.UploadFile(ctx, f.Path, f.RelPath, repo)
		if err != nil {
			logger.Warnf("Upload failed for %s (%s): %v", f.RelPath, humanize.IBytes(uint64(f.Size)), err)
			summary.Failed = append(summary.Failed, f.RelPath)
		} else {
			summary.Uploaded++
		}
		c.tel.Emit("upload", map[string]interface{}{
			"path":       f.RelPath,
			"local_path": f.Path,
			"size":       f.Size,
			"ok":         err == nil,
		})
		_ = bar.Add(1)
	}

	c.enter(stageSummarizing)
	summary.Duration = time.Since(start)
	c.emitSummary(summary)
	return summary, nil
}

func (c *Coordinator) enter(s stage) {
	logger.Debugf("Stage: %s", s)
}

func (c *Coordinator) emitSummary(s *Summary) {
	c.tel.Emit("summary", map[string]interface{}{
		"repo":       s.Repo,
		"records":    s.Records,
		"files":      s.Files,
		"categories": s.Categories,
		"total_size": s.TotalSize,
		"uploaded":   s.Uploaded,
		"failed":     s.Failed,
		"dry_run":    s.DryRun,
		"duration":   s.Duration,
	})
}

// resolveRepo completes a missing or owner-less collection name from the
// authenticated account and the data directory.
func resolveRepo(cfg *config.Config, account string) string {
	repo := strings.TrimSpace(cfg.Repo)
	if repo == "" {
		repo = filepath.Base(filepath.Clean(cfg.DataDir))
	}
	if !strings.Contains(repo, "/") {
		repo = account + "/" + repo
	}
	return repo
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("DATAPUB_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
