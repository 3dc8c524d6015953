package partition

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"scanpack/internal/scan"
)

// draft is a partition under construction. Directories and files are
// finalized into a Spec only after merge, cross-reference, and priority
// passes complete.
type draft struct {
	dirs        []string
	files       []scan.FileInfo
	tokens      int
	description string
	fixedPrio   int // 0 means "score normally"
	merged      bool
}

func (d *draft) absorb(other *draft) {
	d.files = append(d.files, other.files...)
	d.tokens += other.tokens
	d.dirs = mergeDirs(d.dirs, other.dirs)
}

type builderFunc func(tree *scan.DirectoryNode, cfg Config) []*draft

var builders = map[Mode]builderFunc{
	ModeAuto:      buildAuto,
	ModeDirectory: buildDirectory,
	ModeFlat:      buildFlat,
}

// Build turns a scanned tree into partitions. Guarantees: every scanned
// file lands in exactly one partition, no partition is empty, and the
// partition count never exceeds cfg.MaxPartitions.
func Build(tree *scan.DirectoryNode, entryPoints []string, cfg Config) ([]Spec, error) {
	cfg = cfg.withDefaults()
	builder, ok := builders[cfg.Mode]
	if !ok {
		return nil, fmt.Errorf("unknown partition mode %q", cfg.Mode)
	}

	drafts := builder(tree, cfg)
	drafts = dropEmpty(drafts)
	if len(drafts) == 0 {
		return nil, nil
	}

	for _, d := range drafts {
		if d.fixedPrio > 0 {
			continue
		}
		d.fixedPrio = scorePriority(d, entryPoints)
	}
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].fixedPrio > drafts[j].fixedPrio
	})
	drafts = capCount(drafts, cfg.MaxPartitions)

	specs := finalize(drafts)
	linkRelated(specs)
	return specs, nil
}

// --- auto mode ---------------------------------------------------------

func buildAuto(tree *scan.DirectoryNode, cfg Config) []*draft {
	all := tree.AllFiles()
	if len(all) == 0 {
		return nil
	}
	if tree.TotalTokens <= cfg.MaxTokens {
		d := wholeTreeDraft(tree, all)
		return []*draft{d}
	}

	modules := findModules(tree)
	return assemble(tree, modules, cfg)
}

// findModules walks the tree and returns the shallowest nodes that qualify
// as module boundaries; descent stops at each boundary so modules never
// nest.
func findModules(tree *scan.DirectoryNode) []*scan.DirectoryNode {
	var out []*scan.DirectoryNode
	var descend func(node *scan.DirectoryNode)
	descend = func(node *scan.DirectoryNode) {
		for _, child := range node.Children {
			if qualifiesAsModule(child) {
				out = append(out, child)
				continue
			}
			descend(child)
		}
	}
	descend(tree)
	return out
}

func qualifiesAsModule(node *scan.DirectoryNode) bool {
	hasShape := len(node.Files) > 0
	if !hasShape {
		for _, child := range node.Children {
			if child.FileCount > 3 {
				hasShape = true
				break
			}
		}
	}
	return hasShape && (node.TotalTokens > 5000 || node.FileCount > 5)
}

// assemble runs the shared sizing pipeline: split oversized modules, keep
// well-sized ones, merge undersized ones into siblings, then sweep up
// orphan files.
func assemble(tree *scan.DirectoryNode, modules []*scan.DirectoryNode, cfg Config) []*draft {
	var drafts []*draft
	claimed := map[string]bool{}

	if len(tree.Files) > 0 {
		rootTokens := 0
		for _, f := range tree.Files {
			rootTokens += f.Tokens
			claimed[f.RelPath] = true
		}
		drafts = append(drafts, &draft{
			dirs:        []string{""},
			files:       append([]scan.FileInfo{}, tree.Files...),
			tokens:      rootTokens,
			description: "root-level files",
		})
	}

	for _, mod := range modules {
		files := mod.AllFiles()
		for _, f := range files {
			claimed[f.RelPath] = true
		}
		switch {
		case mod.TotalTokens > cfg.MaxTokens:
			drafts = append(drafts, splitModule(mod, files, cfg)...)
		default:
			drafts = append(drafts, &draft{
				dirs:        []string{mod.RelPath},
				files:       files,
				tokens:      mod.TotalTokens,
				description: moduleDescription(mod),
			})
		}
	}

	drafts = mergeUndersized(drafts, cfg)
	drafts = sweepOrphans(tree, drafts, claimed, cfg)
	return drafts
}

// splitModule groups a module's files by immediate subdirectory and packs
// the groups left to right into sub-partitions bounded by TargetTokens.
// A single pass: local overshoot is accepted rather than re-balanced, and
// one oversized file is never split.
func splitModule(mod *scan.DirectoryNode, files []scan.FileInfo, cfg Config) []*draft {
	type group struct {
		key    string
		files  []scan.FileInfo
		tokens int
	}
	byKey := map[string]*group{}
	var keys []string
	prefix := mod.RelPath + "/"

	for _, f := range files {
		key := mod.RelPath
		if rest, ok := strings.CutPrefix(f.RelPath, prefix); ok {
			if idx := strings.Index(rest, "/"); idx >= 0 {
				key = path.Join(mod.RelPath, rest[:idx])
			}
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			keys = append(keys, key)
		}
		g.files = append(g.files, f)
		g.tokens += f.Tokens
	}
	sort.Strings(keys)

	var out []*draft
	current := &draft{}
	flush := func() {
		if len(current.files) > 0 {
			out = append(out, current)
		}
		current = &draft{}
	}
	addFile := func(f scan.FileInfo, dirKey string) {
		if current.tokens > 0 && current.tokens+f.Tokens > cfg.TargetTokens {
			flush()
		}
		current.files = append(current.files, f)
		current.tokens += f.Tokens
		current.dirs = mergeDirs(current.dirs, []string{dirKey})
	}
	for _, key := range keys {
		g := byKey[key]
		if current.tokens > 0 && current.tokens+g.tokens > cfg.TargetTokens {
			flush()
		}
		if g.tokens > cfg.TargetTokens {
			// The group alone blows the budget: fall back to file
			// granularity so overshoot stays bounded by one file.
			for _, f := range g.files {
				addFile(f, g.key)
			}
			continue
		}
		current.files = append(current.files, g.files...)
		current.tokens += g.tokens
		current.dirs = mergeDirs(current.dirs, []string{g.key})
	}
	flush()

	for i, d := range out {
		d.description = fmt.Sprintf("%s (part %d of %d)", moduleDescription(mod), i+1, len(out))
	}
	return out
}

// mergeUndersized folds partitions below MinTokens into a sibling under
// the same parent directory when the combined size stays within
// TargetTokens; otherwise they stay standalone, undersized.
func mergeUndersized(drafts []*draft, cfg Config) []*draft {
	for _, small := range drafts {
		if small.merged || small.tokens >= cfg.MinTokens || len(small.dirs) == 0 {
			continue
		}
		parent := path.Dir(small.dirs[0])
		for _, sibling := range drafts {
			if sibling == small || sibling.merged || len(sibling.dirs) == 0 {
				continue
			}
			if path.Dir(sibling.dirs[0]) != parent {
				continue
			}
			if sibling.tokens+small.tokens > cfg.TargetTokens {
				continue
			}
			sibling.absorb(small)
			small.merged = true
			break
		}
	}
	return dropEmpty(drafts)
}

// sweepOrphans collects files claimed by no module. Orphans big enough for
// their own partition get one at low priority; anything smaller joins the
// currently lightest partition.
func sweepOrphans(tree *scan.DirectoryNode, drafts []*draft, claimed map[string]bool, cfg Config) []*draft {
	var orphans []scan.FileInfo
	orphanTokens := 0
	for _, f := range tree.AllFiles() {
		if claimed[f.RelPath] {
			continue
		}
		orphans = append(orphans, f)
		orphanTokens += f.Tokens
	}
	if len(orphans) == 0 {
		return drafts
	}

	if orphanTokens >= cfg.MinTokens || len(drafts) == 0 {
		return append(drafts, &draft{
			dirs:        orphanDirs(orphans),
			files:       orphans,
			tokens:      orphanTokens,
			description: "miscellaneous loose files",
			fixedPrio:   3,
		})
	}

	lightest := drafts[0]
	for _, d := range drafts[1:] {
		if d.tokens < lightest.tokens {
			lightest = d
		}
	}
	lightest.files = append(lightest.files, orphans...)
	lightest.tokens += orphanTokens
	return drafts
}

// --- directory mode ----------------------------------------------------

// buildDirectory treats every top-level directory as a module and applies
// the same split and merge rules per directory only.
func buildDirectory(tree *scan.DirectoryNode, cfg Config) []*draft {
	if len(tree.AllFiles()) == 0 {
		return nil
	}
	return assemble(tree, tree.Children, cfg)
}

// --- flat mode ---------------------------------------------------------

// buildFlat ignores structure: files sorted by path, greedily packed into
// sequential fixed-size groups.
func buildFlat(tree *scan.DirectoryNode, cfg Config) []*draft {
	files := tree.AllFiles()
	if len(files) == 0 {
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	var out []*draft
	current := &draft{}
	flush := func() {
		if len(current.files) > 0 {
			current.dirs = orphanDirs(current.files)
			out = append(out, current)
		}
		current = &draft{}
	}
	for _, f := range files {
		if current.tokens > 0 && current.tokens+f.Tokens > cfg.TargetTokens {
			flush()
		}
		current.files = append(current.files, f)
		current.tokens += f.Tokens
	}
	flush()

	for i, d := range out {
		d.description = fmt.Sprintf("file group %d of %d", i+1, len(out))
	}
	return out
}

// --- shared finishing passes -------------------------------------------

func wholeTreeDraft(tree *scan.DirectoryNode, files []scan.FileInfo) *draft {
	return &draft{
		dirs:        []string{""},
		files:       files,
		tokens:      tree.TotalTokens,
		description: "entire codebase",
		fixedPrio:   10,
	}
}

// capCount folds partitions beyond the ceiling into the lightest kept
// partition so full file coverage survives truncation.
func capCount(drafts []*draft, maxPartitions int) []*draft {
	if len(drafts) <= maxPartitions {
		return drafts
	}
	kept := drafts[:maxPartitions]
	for _, extra := range drafts[maxPartitions:] {
		lightest := kept[0]
		for _, d := range kept[1:] {
			if d.tokens < lightest.tokens {
				lightest = d
			}
		}
		lightest.absorb(extra)
	}
	return kept
}

func finalize(drafts []*draft) []Spec {
	specs := make([]Spec, 0, len(drafts))
	for i, d := range drafts {
		sort.Slice(d.files, func(a, b int) bool { return d.files[a].RelPath < d.files[b].RelPath })
		files := make([]string, 0, len(d.files))
		for _, f := range d.files {
			files = append(files, f.RelPath)
		}
		specs = append(specs, Spec{
			ID:          fmt.Sprintf("P%03d", i+1),
			Description: d.description,
			Directories: d.dirs,
			Files:       files,
			Tokens:      d.tokens,
			Priority:    d.fixedPrio,
		})
	}
	return specs
}

// linkRelated records a bidirectional relation for every partition pair
// whose directory sets stand in a path-prefix relation. Downstream hint
// data only.
func linkRelated(specs []Spec) {
	for i := range specs {
		for j := i + 1; j < len(specs); j++ {
			if dirSetsRelated(specs[i].Directories, specs[j].Directories) {
				specs[i].Related = append(specs[i].Related, specs[j].ID)
				specs[j].Related = append(specs[j].Related, specs[i].ID)
			}
		}
	}
}

func dirSetsRelated(a, b []string) bool {
	for _, da := range a {
		for _, db := range b {
			if isPathPrefix(da, db) || isPathPrefix(db, da) {
				return true
			}
		}
	}
	return false
}

func isPathPrefix(prefix, p string) bool {
	if prefix == p {
		return true
	}
	if prefix == "" {
		// Root is a prefix of everything.
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

func moduleDescription(mod *scan.DirectoryNode) string {
	lang := mod.MainLanguage
	if lang == "" {
		lang = "mixed"
	}
	return fmt.Sprintf("module %s (%s, %d files)", mod.RelPath, lang, mod.FileCount)
}

func orphanDirs(files []scan.FileInfo) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range files {
		dir := path.Dir(f.RelPath)
		if dir == "." {
			dir = ""
		}
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out
}

func mergeDirs(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, dir := range append(append([]string{}, a...), b...) {
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	sort.Strings(out)
	return out
}

func dropEmpty(drafts []*draft) []*draft {
	out := drafts[:0]
	for _, d := range drafts {
		if !d.merged && len(d.files) > 0 {
			out = append(out, d)
		}
	}
	return out
}
