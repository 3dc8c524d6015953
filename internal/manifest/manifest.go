package manifest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"scanpack/internal/partition"
	"scanpack/internal/project"
	"scanpack/internal/scan"
)

// Manifest is the complete result of one scan invocation: tree, metadata,
// partitions, and a content fingerprint. Read-only downstream.
type Manifest struct {
	Root       string                `json:"root"`
	Hash       string                `json:"hash"`
	CreatedAt  time.Time             `json:"created_at"`
	Tree       *scan.DirectoryNode   `json:"tree"`
	Skipped    []scan.SkippedFile    `json:"skipped,omitempty"`
	Context    project.GlobalContext `json:"context"`
	Partitions []partition.Spec      `json:"partitions"`
}

// Build assembles a manifest and stamps its fingerprint. The partition
// count is folded into the context here so the collaborator payloads see it.
func Build(root string, tree *scan.DirectoryNode, skipped []scan.SkippedFile, ctx project.GlobalContext, parts []partition.Spec) Manifest {
	ctx.PartitionCount = len(parts)
	return Manifest{
		Root:       root,
		Hash:       Fingerprint(tree),
		CreatedAt:  time.Now().UTC(),
		Tree:       tree,
		Skipped:    skipped,
		Context:    ctx,
		Partitions: parts,
	}
}

// Fingerprint derives a stable content hash from the scanned tree: sorted
// relative paths with per-file sizes, plus aggregate file count and token
// total. Deliberately free of wall-clock input so two scans of an
// unchanged tree produce the same fingerprint.
func Fingerprint(tree *scan.DirectoryNode) string {
	files := tree.AllFiles()
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%s\x00%d\x00%d", f.RelPath, f.Size, f.Tokens))
	}
	sort.Strings(lines)

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "files=%d tokens=%d", tree.FileCount, tree.TotalTokens)

	return fmt.Sprintf("%016x", xxh3.HashString(sb.String()))
}

// PartitionIDs lists the manifest's partition ids in priority order.
func (m Manifest) PartitionIDs() []string {
	out := make([]string, 0, len(m.Partitions))
	for _, p := range m.Partitions {
		out = append(out, p.ID)
	}
	return out
}

// PartitionByID returns the named partition, or false when absent.
func (m Manifest) PartitionByID(id string) (partition.Spec, bool) {
	for _, p := range m.Partitions {
		if p.ID == id {
			return p, true
		}
	}
	return partition.Spec{}, false
}
