package publish

import (
	"strings"
	"testing"
	"time"
)

func TestSummaryRenderComplete(t *testing.T) {
	s := &Summary{
		Repo:       "acme/corpus",
		Account:    "alice",
		Records:    1200,
		Files:      3,
		Categories: 2,
		TotalSize:  1024,
		Uploaded:   3,
		Duration:   1500 * time.Millisecond,
	}
	out := s.Render()
	if !strings.Contains(out, "Publication completed\n") {
		t.Fatalf("missing completion line:\n%s", out)
	}
	if !strings.Contains(out, "Records:     1,200") {
		t.Fatalf("missing record count:\n%s", out)
	}
	if strings.Contains(out, "Warnings") {
		t.Fatalf("zero warnings must not be rendered:\n%s", out)
	}
}

func TestSummaryRenderPartial(t *testing.T) {
	s := &Summary{
		Repo:     "acme/corpus",
		Files:    3,
		Uploaded: 2,
		Failed:   []string{"sub/b.jsonl"},
		Warnings: 4,
	}
	out := s.Render()
	if !strings.Contains(out, "Publication completed with 1 of 3 file failures") {
		t.Fatalf("missing failure headline:\n%s", out)
	}
	if !strings.Contains(out, "- sub/b.jsonl") {
		t.Fatalf("failed paths must be listed:\n%s", out)
	}
	if !strings.Contains(out, "Warnings:    4") {
		t.Fatalf("warnings must be rendered:\n%s", out)
	}
	if s.Complete() {
		t.Fatal("summary with failures cannot be complete")
	}
}

func TestSummaryRenderDryRun(t *testing.T) {
	s := &Summary{Repo: "acme/corpus", TotalSize: 10 * 1024 * 1024, DryRun: true}
	out := s.Render()
	if !strings.Contains(out, "dry run, nothing uploaded") {
		t.Fatalf("missing dry-run headline:\n%s", out)
	}
	if !strings.Contains(out, "Estimated upload time") {
		t.Fatalf("missing estimates:\n%s", out)
	}
	if strings.Contains(out, "Uploaded") {
		t.Fatalf("dry run must not render upload tally:\n%s", out)
	}
}

func TestEstimateUpload(t *testing.T) {
	estimates := EstimateUpload(10 * 1024 * 1024)
	if len(estimates) != 3 {
		t.Fatalf("expected three rates, got %v", estimates)
	}
	if estimates[0].Duration != 10*time.Second {
		t.Fatalf("10 MiB at 1 MB/s should take 10s, got %s", estimates[0].Duration)
	}
	if estimates[2].Duration != 500*time.Millisecond {
		t.Fatalf("10 MiB at 20 MB/s should take 500ms, got %s", estimates[2].Duration)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30 seconds"},
		{90 * time.Second, "1.5 minutes"},
		{2*time.Hour + 30*time.Minute, "2.5 hours"},
	}
	for _, c := range cases {
		if got := formatDuration(c.d); got != c.want {
			t.Fatalf("formatDuration(%s) = %s, want %s", c.d, got, c.want)
		}
	}
}
