package app

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scanpack/internal/checkpoint"
	"scanpack/internal/manifest"
	"scanpack/internal/scan"
	"scanpack/internal/watcher"
)

type ScanResponse struct {
	Root       string              `json:"root"`
	Hash       string              `json:"hash"`
	Files      int                 `json:"files"`
	Tokens     int                 `json:"tokens"`
	Partitions int                 `json:"partitions"`
	Languages  []string            `json:"languages,omitempty"`
	Skipped    []scan.SkippedFile  `json:"skipped,omitempty"`
	Tree       *scan.DirectoryNode `json:"tree,omitempty"`
}

func runScan(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(errOut)
	include := fs.String("include", "", "Comma-separated include globs")
	exclude := fs.String("exclude", "", "Comma-separated exclude globs")
	watch := fs.Bool("watch", false, "Rescan on filesystem changes")
	summary := fs.Bool("summary", false, "Omit the full tree from output")
	positional, flagArgs, err := splitFlagArgs(args, map[string]flagSpec{
		"include": {RequiresValue: true},
		"exclude": {RequiresValue: true},
		"watch":   {},
		"summary": {},
	})
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}
	if err := fs.Parse(flagArgs); err != nil {
		return 2
	}

	root, err := resolveRoot(positional)
	if err != nil {
		fmt.Fprintf(errOut, "invalid path: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(globals, root)
	if err != nil {
		fmt.Fprintf(errOut, "config error: %v\n", err)
		return 1
	}
	if globs := splitGlobs(*include); len(globs) > 0 {
		cfg.Include = globs
	}
	if globs := splitGlobs(*exclude); len(globs) > 0 {
		cfg.Exclude = globs
	}

	scanOnce := func() int {
		m, err := buildManifest(root, cfg)
		if err != nil {
			fmt.Fprintf(errOut, "scan error: %v\n", err)
			return 1
		}
		if err := persistManifest(root, m); err != nil {
			fmt.Fprintf(errOut, "manifest write error: %v\n", err)
			return 1
		}
		resp := ScanResponse{
			Root:       root,
			Hash:       m.Hash,
			Files:      m.Tree.FileCount,
			Tokens:     m.Tree.TotalTokens,
			Partitions: len(m.Partitions),
			Languages:  treeLanguages(m.Tree),
			Skipped:    m.Skipped,
		}
		if !*summary {
			resp.Tree = m.Tree
		}
		return writeJSON(out, errOut, resp)
	}

	if code := scanOnce(); code != 0 || !*watch {
		return code
	}

	ignorer := scan.LoadGitignore(root)
	excludePatterns := scan.CompilePatterns(cfg.Exclude)
	notifier, err := watcher.New(root, 500*time.Millisecond, func(relPath string) bool {
		if ignorer != nil && ignorer(relPath) {
			return true
		}
		for _, p := range excludePatterns {
			if p.Match(relPath) || p.Match(relPath+"/") {
				return true
			}
		}
		return false
	})
	if err != nil {
		fmt.Fprintf(errOut, "watch error: %v\n", err)
		return 1
	}
	if err := notifier.Start(); err != nil {
		fmt.Fprintf(errOut, "watch error: %v\n", err)
		return 1
	}
	defer notifier.Stop()

	for batch := range notifier.Batches() {
		fmt.Fprintf(errOut, "changed: %s\n", strings.Join(batch.Paths, ", "))
		if code := scanOnce(); code != 0 {
			return code
		}
	}
	return 0
}

// persistManifest drops the latest manifest next to the checkpoint so the
// collaborating agent can read the plan without re-invoking the CLI.
func persistManifest(root string, m manifest.Manifest) error {
	dir := filepath.Join(root, checkpoint.ToolingDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "manifest.json")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func splitGlobs(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func treeLanguages(tree *scan.DirectoryNode) []string {
	langs := tree.LanguageTokens()
	type entry struct {
		name   string
		tokens int
	}
	ranked := make([]entry, 0, len(langs))
	for name, tokens := range langs {
		if name == "other" {
			continue
		}
		ranked = append(ranked, entry{name, tokens})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].tokens != ranked[j].tokens {
			return ranked[i].tokens > ranked[j].tokens
		}
		return ranked[i].name < ranked[j].name
	})
	out := make([]string, len(ranked))
	for i, e := range ranked {
		out[i] = e.name
	}
	return out
}
