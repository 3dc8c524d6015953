package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"scanpack/internal/project"
)

// Knowledge is the synthesized, store-ready view of a whole exploration
// run: per-partition results merged into one object.
type Knowledge struct {
	ProjectName string    `json:"project_name"`
	Summary     string    `json:"summary"`
	Insights    []string  `json:"insights,omitempty"`
	KeyFiles    []string  `json:"key_files,omitempty"`
	CrossRefs   []string  `json:"cross_references,omitempty"`
	Confidence  int       `json:"confidence"`
	Coverage    int       `json:"coverage"`
	Failures    []string  `json:"failures,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Synthesize merges partition results in id order. Confidence and coverage
// are averaged over successful partitions only; failed ones are listed so
// the caller can tell a thin synthesis from a clean one.
func Synthesize(ctx project.GlobalContext, results map[string]Result) Knowledge {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	k := Knowledge{
		ProjectName: ctx.ProjectName,
		GeneratedAt: time.Now().UTC(),
	}
	seenFiles := map[string]bool{}
	seenRefs := map[string]bool{}
	confSum, covSum, ok := 0, 0, 0

	for _, id := range ids {
		res := results[id]
		if res.Error != "" {
			k.Failures = append(k.Failures, fmt.Sprintf("%s: %s", id, res.Error))
			continue
		}
		ok++
		confSum += res.Confidence
		covSum += res.Coverage
		k.Insights = append(k.Insights, res.Insights...)
		for _, f := range res.KeyFiles {
			if !seenFiles[f] {
				seenFiles[f] = true
				k.KeyFiles = append(k.KeyFiles, f)
			}
		}
		for _, ref := range res.CrossRefs {
			if !seenRefs[ref] {
				seenRefs[ref] = true
				k.CrossRefs = append(k.CrossRefs, ref)
			}
		}
	}
	if ok > 0 {
		k.Confidence = confSum / ok
		k.Coverage = covSum / ok
	}

	k.Summary = summarize(ctx, ok, len(ids), k.Insights)
	return k
}

func summarize(ctx project.GlobalContext, ok, total int, insights []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d/%d partitions explored", ctx.ProjectName, ok, total)
	if ctx.Description != "" {
		fmt.Fprintf(&sb, ". %s", ctx.Description)
	}
	if len(insights) > 0 {
		fmt.Fprintf(&sb, " Leading insight: %s", insights[0])
	}
	return sb.String()
}
