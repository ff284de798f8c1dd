package publish

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary is the end-of-run report. A run with upload failures still counts
// as completed; Complete distinguishes the two outcomes.
type Summary struct {
	Repo       string
	Account    string
	Records    int
	Files      int
	Categories int
	TotalSize  int64
	Warnings   int
	Uploaded   int
	Failed     []string
	DryRun     bool
	Duration   time.Duration
}

func (s *Summary) Complete() bool {
	return len(s.Failed) == 0
}

func (s *Summary) Render() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("Validation summary (dry run, nothing uploaded)\n")
	} else if s.Complete() {
		b.WriteString("Publication completed\n")
	} else {
		fmt.Fprintf(&b, "Publication completed with %d of %d file failures\n", len(s.Failed), s.Files)
	}
	fmt.Fprintf(&b, "  Collection:  %s\n", s.Repo)
	fmt.Fprintf(&b, "  Account:     %s\n", s.Account)
	fmt.Fprintf(&b, "  Records:     %s\n", humanize.Comma(int64(s.Records)))
	fmt.Fprintf(&b, "  Files:       %d\n", s.Files)
	fmt.Fprintf(&b, "  Categories:  %d\n", s.Categories)
	fmt.Fprintf(&b, "  Total size:  %s\n", humanize.IBytes(uint64(s.TotalSize)))
	if s.Warnings > 0 {
		fmt.Fprintf(&b, "  Warnings:    %d\n", s.Warnings)
	}
	if s.DryRun {
		b.WriteString("  Estimated upload time:\n")
		for _, e := range EstimateUpload(s.TotalSize) {
			fmt.Fprintf(&b, "    %-7s %s\n", e.Label+":", formatDuration(e.Duration))
		}
		return b.String()
	}
	fmt.Fprintf(&b, "  Uploaded:    %d\n", s.Uploaded)
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, "  Failed:      %d\n", len(s.Failed))
		for _, rel := range s.Failed {
			fmt.Fprintf(&b, "    - %s\n", rel)
		}
		b.WriteString("  Re-run to retry the failed files; remote overwrite semantics apply.\n")
	}
	fmt.Fprintf(&b, "  Duration:    %s\n", s.Duration.Round(time.Millisecond))
	return b.String()
}

// Estimate is a rough upload-time projection for one assumed transfer rate.
type Estimate struct {
	Label    string
	RateMBps float64
	Duration time.Duration
}

// EstimateUpload projects upload times at conservative transfer rates.
func EstimateUpload(totalSize int64) []Estimate {
	speeds := []Estimate{
		{Label: "slow", RateMBps: 1},
		{Label: "medium", RateMBps: 5},
		{Label: "fast", RateMBps: 20},
	}
	mb := float64(totalSize) / (1024 * 1024)
	for i := range speeds {
		speeds[i].Duration = time.Duration(mb / speeds[i].RateMBps * float64(time.Second))
	}
	return speeds
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%.1f hours", d.Hours())
	case d >= time.Minute:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	}
}
