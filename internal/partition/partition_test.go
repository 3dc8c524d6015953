package partition

import (
	"path"
	"strings"
	"testing"

	"scanpack/internal/scan"
)

// buildTree assembles a DirectoryNode tree from rel-path/token pairs
// without touching the filesystem.
func buildTree(t *testing.T, tokensByPath map[string]int) *scan.DirectoryNode {
	t.Helper()
	nodes := map[string]*scan.DirectoryNode{"": {RelPath: ""}}

	ensureDir := func(dir string) *scan.DirectoryNode {
		if n, ok := nodes[dir]; ok {
			return n
		}
		parts := strings.Split(dir, "/")
		cur := ""
		for _, part := range parts {
			next := path.Join(cur, part)
			if _, ok := nodes[next]; !ok {
				node := &scan.DirectoryNode{RelPath: next}
				nodes[next] = node
				parent := nodes[cur]
				parent.Children = append(parent.Children, node)
			}
			cur = next
		}
		return nodes[dir]
	}

	var paths []string
	for p := range tokensByPath {
		paths = append(paths, p)
	}
	// Deterministic tree shape regardless of map order.
	for _, p := range sortedStrings(paths) {
		tokens := tokensByPath[p]
		dir := path.Dir(p)
		if dir == "." {
			dir = ""
		}
		node := ensureDir(dir)
		node.Files = append(node.Files, scan.FileInfo{
			RelPath:  p,
			Tokens:   tokens,
			Size:     int64(tokens * 4),
			Language: "go",
		})
	}

	var aggregate func(n *scan.DirectoryNode)
	aggregate = func(n *scan.DirectoryNode) {
		for _, f := range n.Files {
			n.TotalTokens += f.Tokens
			n.FileCount++
		}
		for _, c := range n.Children {
			aggregate(c)
			n.TotalTokens += c.TotalTokens
			n.FileCount += c.FileCount
		}
	}
	root := nodes[""]
	aggregate(root)
	return root
}

func sortedStrings(in []string) []string {
	out := append([]string{}, in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func assertCoverage(t *testing.T, tree *scan.DirectoryNode, specs []Spec) {
	t.Helper()
	seen := map[string]int{}
	for _, spec := range specs {
		if len(spec.Files) == 0 {
			t.Fatalf("partition %s has an empty file list", spec.ID)
		}
		for _, f := range spec.Files {
			seen[f]++
		}
	}
	for _, f := range tree.AllFiles() {
		switch seen[f.RelPath] {
		case 0:
			t.Fatalf("file %s missing from every partition", f.RelPath)
		case 1:
		default:
			t.Fatalf("file %s appears in %d partitions", f.RelPath, seen[f.RelPath])
		}
	}
	if len(seen) != tree.FileCount {
		t.Fatalf("partitions cover %d files, tree has %d", len(seen), tree.FileCount)
	}
}

func TestSmallTreeYieldsSinglePartition(t *testing.T) {
	tree := buildTree(t, map[string]int{
		"a.go":     200,
		"b.go":     200,
		"sub/c.go": 100,
	})
	specs, err := Build(tree, nil, Config{MaxTokens: 100000})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(specs))
	}
	if specs[0].Priority != 10 {
		t.Fatalf("expected priority 10, got %d", specs[0].Priority)
	}
	if len(specs[0].Files) != 3 {
		t.Fatalf("expected all 3 files, got %d", len(specs[0].Files))
	}
	assertCoverage(t, tree, specs)
}

func TestEmptyTreeYieldsNoPartitions(t *testing.T) {
	tree := buildTree(t, map[string]int{})
	specs, err := Build(tree, nil, Config{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(specs) != 0 {
		t.Fatalf("expected no partitions for empty tree, got %d", len(specs))
	}
}

func TestOversizedModuleIsSplit(t *testing.T) {
	tokens := map[string]int{}
	// One module of 150k tokens spread over subdirectories.
	for i := 0; i < 5; i++ {
		sub := string(rune('a' + i))
		for j := 0; j < 6; j++ {
			tokens["big/"+sub+"/f"+string(rune('0'+j))+".go"] = 5000
		}
	}
	// A second small module keeps total above MaxTokens.
	tokens["small/x.go"] = 6000

	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 80000, MinTokens: 5000, MaxTokens: 100000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)

	bigParts := 0
	for _, spec := range specs {
		if strings.HasPrefix(spec.Files[0], "big/") {
			bigParts++
			if spec.Tokens > cfg.TargetTokens {
				t.Fatalf("split sub-partition %s exceeds target: %d", spec.ID, spec.Tokens)
			}
		}
	}
	if bigParts < 2 {
		t.Fatalf("expected oversized module split into >=2 partitions, got %d", bigParts)
	}
}

func TestOvershootBoundedByOneFile(t *testing.T) {
	tokens := map[string]int{}
	maxFile := 0
	for i := 0; i < 40; i++ {
		tok := 7000 + i*13
		tokens["mod/sub/f"+fmtInt(i)+".go"] = tok
		if tok > maxFile {
			maxFile = tok
		}
	}
	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 50000, MinTokens: 5000, MaxTokens: 60000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)
	for _, spec := range specs {
		if spec.Tokens > cfg.MaxTokens+maxFile {
			t.Fatalf("partition %s tokens %d exceed max+one-file bound", spec.ID, spec.Tokens)
		}
	}
}

func fmtInt(i int) string {
	return string(rune('a'+i/10)) + string(rune('0'+i%10))
}

func TestUndersizedModuleMergesIntoSibling(t *testing.T) {
	tokens := map[string]int{}
	// api is a well-sized module; tiny qualifies as a module (7 files)
	// but sits below MinTokens, so it must merge into a sibling.
	for i := 0; i < 8; i++ {
		tokens["api/f"+string(rune('0'+i))+".go"] = 3000
	}
	for i := 0; i < 7; i++ {
		tokens["tiny/t"+string(rune('0'+i))+".go"] = 500
	}
	// Bulk pushes the total past MaxTokens so auto mode partitions.
	for i := 0; i < 30; i++ {
		tokens["bulk/f"+fmtInt(i)+".go"] = 4000
	}

	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 80000, MinTokens: 5000, MaxTokens: 100000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)

	for _, spec := range specs {
		for _, f := range spec.Files {
			if f == "tiny/t0.go" {
				hasSibling := false
				for _, other := range spec.Files {
					if !strings.HasPrefix(other, "tiny/") {
						hasSibling = true
					}
				}
				if !hasSibling {
					t.Fatalf("tiny module should merge into a sibling partition, got files %v", spec.Files)
				}
			}
		}
	}
}

func TestOrphansFormLowPriorityPartition(t *testing.T) {
	tokens := map[string]int{}
	for i := 0; i < 30; i++ {
		tokens["mod/f"+fmtInt(i)+".go"] = 4000
	}
	// Orphans: parent dir holds too little to qualify as a module itself,
	// spread so no module boundary claims them.
	tokens["docs/notes/guide.md"] = 3000
	tokens["docs/extra/more.md"] = 3000

	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 80000, MinTokens: 5000, MaxTokens: 100000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)

	found := false
	for _, spec := range specs {
		for _, f := range spec.Files {
			if f == "docs/notes/guide.md" {
				found = true
				if spec.Priority != 3 {
					t.Fatalf("expected dedicated orphan partition at priority 3, got %d", spec.Priority)
				}
			}
		}
	}
	if !found {
		t.Fatalf("orphan file missing from partitions")
	}
}

func TestMaxPartitionsCeilingKeepsCoverage(t *testing.T) {
	tokens := map[string]int{}
	for i := 0; i < 12; i++ {
		dir := "m" + fmtInt(i)
		for j := 0; j < 3; j++ {
			tokens[dir+"/f"+string(rune('0'+j))+".go"] = 3000
		}
	}
	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 9000, MinTokens: 1000, MaxTokens: 10000, MaxPartitions: 5}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(specs) > cfg.MaxPartitions {
		t.Fatalf("partition count %d exceeds ceiling %d", len(specs), cfg.MaxPartitions)
	}
	assertCoverage(t, tree, specs)
}

func TestSingleOversizedFileNeverSplit(t *testing.T) {
	tokens := map[string]int{
		"mod/huge.go": 90000,
		"mod/a.go":    20000,
		"mod/b.go":    20000,
	}
	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 40000, MinTokens: 5000, MaxTokens: 60000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)

	found := false
	for _, spec := range specs {
		for _, f := range spec.Files {
			if f == "mod/huge.go" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("oversized file missing from output")
	}
}

func TestDirectoryModeGroupsTopLevel(t *testing.T) {
	tokens := map[string]int{
		"alpha/a.go":      4000,
		"alpha/b.go":      4000,
		"beta/deep/c.go":  4000,
		"beta/deep/d.go":  4000,
		"loose.go":        1000,
	}
	tree := buildTree(t, tokens)
	cfg := Config{Mode: ModeDirectory, TargetTokens: 80000, MinTokens: 1000, MaxTokens: 100000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)
	if len(specs) != 3 {
		t.Fatalf("expected 3 partitions (alpha, beta, root), got %d: %+v", len(specs), specs)
	}
}

func TestFlatModePacksSortedFiles(t *testing.T) {
	tokens := map[string]int{}
	for i := 0; i < 10; i++ {
		tokens["f"+fmtInt(i)+".go"] = 3000
	}
	tree := buildTree(t, tokens)
	cfg := Config{Mode: ModeFlat, TargetTokens: 10000, MinTokens: 1000, MaxTokens: 12000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)
	if len(specs) < 3 {
		t.Fatalf("expected multiple flat groups, got %d", len(specs))
	}
	for _, spec := range specs {
		if spec.Tokens > cfg.TargetTokens+3000 {
			t.Fatalf("flat group %s exceeds bound: %d", spec.ID, spec.Tokens)
		}
	}
}

func TestUnknownModeRejected(t *testing.T) {
	tree := buildTree(t, map[string]int{"a.go": 10})
	if _, err := Build(tree, nil, Config{Mode: Mode("fancy")}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestCrossReferencesArePathPrefixBased(t *testing.T) {
	tokens := map[string]int{}
	for i := 0; i < 30; i++ {
		tokens["app/core/f"+fmtInt(i)+".go"] = 4000
	}
	for i := 0; i < 10; i++ {
		tokens["app/core/plugins/p"+fmtInt(i)+".go"] = 4000
	}
	for i := 0; i < 10; i++ {
		tokens["unrelated/u"+fmtInt(i)+".go"] = 4000
	}
	tree := buildTree(t, tokens)
	cfg := Config{TargetTokens: 60000, MinTokens: 5000, MaxTokens: 80000, MaxPartitions: 25}
	specs, err := Build(tree, nil, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	assertCoverage(t, tree, specs)

	byID := map[string]Spec{}
	for _, spec := range specs {
		byID[spec.ID] = spec
	}
	for _, spec := range specs {
		for _, rel := range spec.Related {
			other := byID[rel]
			backlinked := false
			for _, back := range other.Related {
				if back == spec.ID {
					backlinked = true
				}
			}
			if !backlinked {
				t.Fatalf("relation %s -> %s is not bidirectional", spec.ID, rel)
			}
		}
	}
}

func TestBatchesChunkByParallelFactor(t *testing.T) {
	ids := []string{"P001", "P002", "P003", "P004", "P005"}
	batches := Batches(ids, 2)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %v", batches)
	}
	if got := Batches(ids, 0); len(got) != 5 {
		t.Fatalf("parallel<=0 should mean batches of one, got %v", got)
	}
	if Batches(nil, 3) != nil {
		t.Fatalf("expected nil batches for no ids")
	}
}
