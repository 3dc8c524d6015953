package partition

import (
	"path"
	"strings"
)

var (
	corePatterns      = []string{"src", "lib", "core", "internal", "pkg"}
	testPatterns      = []string{"test", "tests", "__tests__", "spec", "specs", "testdata"}
	generatedPatterns = []string{"gen", "generated", "build", "dist", "out", "target", "vendor", "node_modules"}
)

// scorePriority ranks a partition for the downstream agent: base 5,
// boosted for entry points and core directories, lowered for test and
// generated trees, clamped to [1,10].
func scorePriority(d *draft, entryPoints []string) int {
	score := 5

	entrySet := map[string]bool{}
	entryDirs := map[string]bool{}
	for _, ep := range entryPoints {
		entrySet[ep] = true
		entryDirs[path.Dir(ep)] = true
	}

	for _, f := range d.files {
		if entrySet[f.RelPath] {
			score += 3
			break
		}
	}
	for _, dir := range d.dirs {
		key := dir
		if key == "" {
			key = "."
		}
		if entryDirs[key] {
			score += 2
			break
		}
	}

	if dirsMatchAny(d.dirs, corePatterns) {
		score += 2
	}
	if dirsMatchAny(d.dirs, testPatterns) {
		score -= 2
	}
	if dirsMatchAny(d.dirs, generatedPatterns) {
		score -= 3
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

func dirsMatchAny(dirs, patterns []string) bool {
	for _, dir := range dirs {
		for _, segment := range strings.Split(dir, "/") {
			lower := strings.ToLower(segment)
			for _, p := range patterns {
				if lower == p {
					return true
				}
			}
		}
	}
	return false
}
