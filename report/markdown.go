package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Markdown renders a human readable digest of the report: the summary
// table, per-family misses and every image where a detector disagrees with
// ground truth.
//
// Returns:
// - Markdown formatted string.
//
// @example
// md := report.Build(run).Markdown()
// os.WriteFile("report.md", []byte(md), 0644)
func (r *Report) Markdown() string {
	var md strings.Builder

	md.WriteString("# Detector Comparison\n\n")
	md.WriteString(fmt.Sprintf("**Run:** %s  \n", r.RunID))
	md.WriteString(fmt.Sprintf("**Generated:** %s  \n", r.GeneratedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Images:** %d\n\n", len(r.Images)))

	md.WriteString("## Summary\n\n")
	md.WriteString("| Detector | GT | Detected | TP | Missed | FP | Precision | Recall | F1 | Avg detection |\n")
	md.WriteString("|----------|----|----------|----|--------|----|-----------|--------|----|---------------|\n")
	for _, s := range r.Summaries {
		avg := "n/a"
		if s.Timing.ImageCount > 0 {
			avg = fmt.Sprintf("%.2f ms", s.Timing.AvgDetectionMs)
		}
		md.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %.4f | %.4f | %.4f | %s |\n",
			s.Detector, s.TotalGroundTruth, s.TotalDetected, s.TruePositives, s.Missed, s.FalsePositives,
			s.Precision, s.Recall, s.F1, avg))
	}
	md.WriteString("\n")

	for _, s := range r.Summaries {
		if len(s.MissedByFamily) == 0 && len(s.FalsePositivesByFamily) == 0 {
			continue
		}
		md.WriteString(fmt.Sprintf("### %s by family\n\n", s.Detector))
		md.WriteString("| Family | Missed | False positives |\n")
		md.WriteString("|--------|--------|-----------------|\n")
		for _, family := range unionKeys(s.MissedByFamily, s.FalsePositivesByFamily) {
			md.WriteString(fmt.Sprintf("| %s | %d | %d |\n",
				family, s.MissedByFamily[family], s.FalsePositivesByFamily[family]))
		}
		md.WriteString("\n")
	}

	var diffs strings.Builder
	for _, img := range r.Images {
		for _, name := range r.Detectors {
			d := img.Detectors[name]
			if len(d.Missed) == 0 && len(d.FalsePositives) == 0 {
				continue
			}
			diffs.WriteString(fmt.Sprintf("- **%s** / %s (%s):", img.Image, name, d.Status))
			if len(d.Missed) > 0 {
				diffs.WriteString(fmt.Sprintf(" missed %s", strings.Join(d.Missed, ", ")))
			}
			if len(d.FalsePositives) > 0 {
				diffs.WriteString(fmt.Sprintf(" false positives %s", strings.Join(d.FalsePositives, ", ")))
			}
			diffs.WriteString("\n")
		}
	}
	if diffs.Len() > 0 {
		md.WriteString("## Disagreements\n\n")
		md.WriteString(diffs.String())
	}

	return md.String()
}

// WriteMarkdown writes Markdown() to path.
func (r *Report) WriteMarkdown(path string) error {
	return errors.Wrap(os.WriteFile(path, []byte(r.Markdown()), 0o644), "failed to write markdown report")
}

func unionKeys(maps ...map[string]int) []string {
	seen := map[string]struct{}{}
	for _, m := range maps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
