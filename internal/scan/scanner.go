package scan

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"scanpack/internal/pathutil"
	"scanpack/internal/token"
)

const (
	// maxDepth bounds pathological trees; no other cycle detection is
	// needed because visited canonical directories are tracked too.
	maxDepth = 10

	// maxFileTokens is the per-file ceiling; larger files are skipped
	// rather than partitioned.
	maxFileTokens = 100000
)

// IgnoreFunc is an extra exclude source (e.g. the project's .gitignore).
// It receives slash-separated paths relative to the scan root; directories
// carry a trailing slash.
type IgnoreFunc func(relPath string) bool

// Options configure one scan. The zero value scans everything.
type Options struct {
	Include []string
	Exclude []string
	Ignore  IgnoreFunc
}

type scanner struct {
	root    string
	include []Pattern
	exclude []Pattern
	ignore  IgnoreFunc
	skipped []SkippedFile
	visited map[string]bool
}

// Scan walks root depth-first and returns the aggregated tree plus the
// list of skipped files. Only an unreadable root is fatal; unreadable
// files inside the tree degrade to size-based estimates.
func Scan(root string, opts Options) (*DirectoryNode, []SkippedFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if _, err := os.ReadDir(absRoot); err != nil {
		return nil, nil, fmt.Errorf("read project root %s: %w", absRoot, err)
	}

	s := &scanner{
		root:    absRoot,
		include: CompilePatterns(opts.Include),
		exclude: CompilePatterns(opts.Exclude),
		ignore:  opts.Ignore,
		visited: map[string]bool{},
	}
	s.visited[pathutil.Canonical(absRoot)] = true

	node := s.walk(absRoot, "", 0)
	if node == nil {
		node = newNode("")
	}
	return node, s.skipped, nil
}

func newNode(relPath string) *DirectoryNode {
	return &DirectoryNode{RelPath: relPath, langTokens: map[string]int{}}
}

func (s *scanner) walk(dir, relDir string, depth int) *DirectoryNode {
	if depth > maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	node := newNode(relDir)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		relPath := joinRel(relDir, name)
		absPath := filepath.Join(dir, name)

		if entry.IsDir() || s.isSymlinkDir(absPath, entry) {
			if s.excludedDir(relPath) {
				continue
			}
			canonical := pathutil.Canonical(absPath)
			if s.visited[canonical] {
				continue
			}
			s.visited[canonical] = true

			child := s.walk(absPath, relPath, depth+1)
			if child == nil {
				continue
			}
			node.Children = append(node.Children, child)
			node.TotalTokens += child.TotalTokens
			node.FileCount += child.FileCount
			for lang, tokens := range child.langTokens {
				node.langTokens[lang] += tokens
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		file, ok := s.scanFile(absPath, relPath)
		if !ok {
			continue
		}
		node.Files = append(node.Files, file)
		node.TotalTokens += file.Tokens
		node.FileCount++
		node.langTokens[file.Language] += file.Tokens
	}

	node.MainLanguage = dominantLanguage(node.langTokens)
	return node
}

func (s *scanner) excludedDir(relPath string) bool {
	dirPath := relPath + "/"
	if matchAny(s.exclude, dirPath) || matchAny(s.exclude, relPath) {
		return true
	}
	return s.ignore != nil && s.ignore(dirPath)
}

func (s *scanner) scanFile(absPath, relPath string) (FileInfo, bool) {
	if matchAny(s.exclude, relPath) || (s.ignore != nil && s.ignore(relPath)) {
		s.skip(relPath, SkipExcluded, 0, 0)
		return FileInfo{}, false
	}
	if len(s.include) > 0 && !matchAny(s.include, relPath) {
		s.skip(relPath, SkipExcluded, 0, 0)
		return FileInfo{}, false
	}
	if isBinaryExt(relPath) {
		s.skip(relPath, SkipBinary, 0, 0)
		return FileInfo{}, false
	}

	info, err := os.Stat(absPath)
	if err != nil {
		// Raced away between list and stat; treat like an excluded entry.
		s.skip(relPath, SkipExcluded, 0, 0)
		return FileInfo{}, false
	}

	tokens := token.Estimate(info.Size())
	if tokens > maxFileTokens {
		s.skip(relPath, SkipTooLarge, info.Size(), tokens)
		return FileInfo{}, false
	}

	return FileInfo{
		Path:     absPath,
		RelPath:  relPath,
		Size:     info.Size(),
		Tokens:   tokens,
		Language: detectLanguage(relPath),
		Lines:    countLines(absPath, info.Size()),
	}, true
}

func (s *scanner) skip(relPath string, reason SkipReason, size int64, tokens int) {
	s.skipped = append(s.skipped, SkippedFile{
		RelPath: relPath,
		Reason:  reason,
		Size:    size,
		Tokens:  tokens,
	})
}

func (s *scanner) isSymlinkDir(absPath string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(absPath)
	return err == nil && info.IsDir()
}

func countLines(path string, size int64) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return token.EstimateLines(size)
	}
	if len(data) == 0 {
		return 0
	}
	lines := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		lines++
	}
	return lines
}

func dominantLanguage(langTokens map[string]int) string {
	best := ""
	bestTokens := 0
	for lang, tokens := range langTokens {
		if lang == "other" {
			continue
		}
		if tokens > bestTokens || (tokens == bestTokens && lang < best) {
			best = lang
			bestTokens = tokens
		}
	}
	return best
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
