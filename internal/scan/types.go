package scan

// FileInfo describes a single scanned file. Immutable once produced.
type FileInfo struct {
	Path     string `json:"path"`
	RelPath  string `json:"rel_path"`
	Size     int64  `json:"size"`
	Tokens   int    `json:"tokens"`
	Language string `json:"language"`
	Lines    int    `json:"lines"`
}

// DirectoryNode is one directory of the scanned tree. Children finish
// aggregating before the parent folds their totals in; after construction
// the node is never mutated.
type DirectoryNode struct {
	RelPath      string           `json:"rel_path"`
	Files        []FileInfo       `json:"files,omitempty"`
	Children     []*DirectoryNode `json:"children,omitempty"`
	TotalTokens  int              `json:"total_tokens"`
	FileCount    int              `json:"file_count"`
	MainLanguage string           `json:"main_language,omitempty"`

	langTokens map[string]int
}

// LanguageTokens reports the per-language token tally aggregated over the
// whole subtree. The returned map must not be modified.
func (n *DirectoryNode) LanguageTokens() map[string]int {
	return n.langTokens
}

// AllFiles collects every file in the subtree, depth-first.
func (n *DirectoryNode) AllFiles() []FileInfo {
	out := append([]FileInfo{}, n.Files...)
	for _, child := range n.Children {
		out = append(out, child.AllFiles()...)
	}
	return out
}

// SkipReason classifies why a file was left out of the tree.
type SkipReason string

const (
	SkipTooLarge SkipReason = "too_large"
	SkipBinary   SkipReason = "binary"
	SkipExcluded SkipReason = "excluded"
)

// SkippedFile records one skipped entry for audit output. Size and Tokens
// are only filled for oversized files.
type SkippedFile struct {
	RelPath string     `json:"rel_path"`
	Reason  SkipReason `json:"reason"`
	Size    int64      `json:"size,omitempty"`
	Tokens  int        `json:"tokens,omitempty"`
}
