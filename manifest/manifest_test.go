package manifest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"datapub/aggregate"
)

func sampleStats() *aggregate.Stats {
	return &aggregate.Stats{
		Records:   12345,
		Files:     3,
		TotalSize: 2 * 1024 * 1024,
		Categories: map[string]int{
			"science": 8000,
			"history": 4000,
			"art":     345,
		},
		NewestMod: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildDeterministic(t *testing.T) {
	at := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	first := Build(sampleStats(), at, "acme/corpus", 20)
	second := Build(sampleStats(), at, "acme/corpus", 20)
	if first != second {
		t.Fatal("identical inputs must render identical manifests")
	}
}

func TestBuildContents(t *testing.T) {
	at := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	doc := Build(sampleStats(), at, "acme/corpus", 20)

	for _, want := range []string{
		"# acme/corpus",
		"- Records: 12,345",
		"- Record files: 3",
		"- Distinct categories: 3",
		"- Total size: 2.0 MiB",
		"- Data freshness: 2026-05-01T12:00:00Z",
		"- Generated: 2026-08-01T09:30:00Z",
		"## Data format",
		"## Usage",
		`load_dataset("acme/corpus")`,
		"CC BY-SA 4.0",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("manifest missing %q:\n%s", want, doc)
		}
	}

	// Categories listed in lexicographic order.
	if strings.Index(doc, "1. art") > strings.Index(doc, "2. history") ||
		strings.Index(doc, "2. history") > strings.Index(doc, "3. science") {
		t.Fatalf("categories not sorted:\n%s", doc)
	}
}

func TestBuildTruncatesCategoryPreview(t *testing.T) {
	stats := sampleStats()
	stats.Categories = map[string]int{}
	for i := 0; i < 25; i++ {
		stats.Categories[fmt.Sprintf("cat%02d", i)] = 1
	}
	doc := Build(stats, time.Now().UTC(), "acme/corpus", 20)

	if !strings.Contains(doc, "20. cat19") {
		t.Fatalf("expected 20 listed categories:\n%s", doc)
	}
	if strings.Contains(doc, "cat20") {
		t.Fatalf("preview not truncated:\n%s", doc)
	}
	if !strings.Contains(doc, "and 5 more") {
		t.Fatalf("missing truncation marker:\n%s", doc)
	}
}

func TestBuildEmptyStats(t *testing.T) {
	doc := Build(&aggregate.Stats{Categories: map[string]int{}}, time.Now().UTC(), "acme/empty", 20)
	if strings.Contains(doc, "## Categories") {
		t.Fatalf("empty stats should omit category section:\n%s", doc)
	}
	if strings.Contains(doc, "Data freshness") {
		t.Fatalf("zero mod time should omit freshness line:\n%s", doc)
	}
	if !strings.Contains(doc, "- Records: 0") {
		t.Fatalf("missing zero record count:\n%s", doc)
	}
}
