// Package manifest renders the descriptive document uploaded alongside a
// published dataset. Rendering is pure: the same statistics and timestamp
// always produce the same document.
package manifest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"datapub/aggregate"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/maps"
)

const truncationMarker = "…"

const formatExample = `{"category": "science", "question": "...", "answer": "...", "source": "..."}`

const usageExample = `from datasets import load_dataset

ds = load_dataset("%s")
for record in ds["train"]:
    print(record["category"], record["question"])`

const licenseText = `## License and provenance

Derived from publicly available wiki dumps. Text content is distributed
under the Creative Commons Attribution-ShareAlike 4.0 license
(CC BY-SA 4.0); attribution of the upstream sources is preserved in each
record where available. Generated with datapub; statistics above reflect
the local tree at generation time.`

// Build renders the manifest for one publication run.
func Build(stats *aggregate.Stats, generatedAt time.Time, repo string, previewLimit int) string {
	if previewLimit <= 0 {
		previewLimit = 20
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", repo)
	b.WriteString("Category-partitioned text-record dataset of line-delimited JSON files,\n")
	b.WriteString("published from a locally generated corpus.\n\n")

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- Records: %s\n", humanize.Comma(int64(stats.Records)))
	fmt.Fprintf(&b, "- Record files: %d\n", stats.Files)
	fmt.Fprintf(&b, "- Distinct categories: %d\n", stats.DistinctCategories())
	fmt.Fprintf(&b, "- Total size: %s\n", humanize.IBytes(uint64(stats.TotalSize)))
	if !stats.NewestMod.IsZero() {
		fmt.Fprintf(&b, "- Data freshness: %s\n", stats.NewestMod.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", generatedAt.UTC().Format(time.RFC3339))

	labels := maps.Keys(stats.Categories)
	sort.Strings(labels)
	if len(labels) > 0 {
		b.WriteString("## Categories\n\n")
		shown := labels
		if len(shown) > previewLimit {
			shown = shown[:previewLimit]
		}
		for i, label := range shown {
			fmt.Fprintf(&b, "%d. %s\n", i+1, label)
		}
		if len(labels) > previewLimit {
			fmt.Fprintf(&b, "- %s and %d more\n", truncationMarker, len(labels)-previewLimit)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Data format\n\n")
	b.WriteString("Each file holds one JSON object per line:\n\n")
	fmt.Fprintf(&b, "```json\n%s\n```\n\n", formatExample)

	b.WriteString("## Usage\n\n")
	fmt.Fprintf(&b, "```python\n"+usageExample+"\n```\n\n", repo)

	b.WriteString(licenseText)
	b.WriteString("\n")
	return b.String()
}
