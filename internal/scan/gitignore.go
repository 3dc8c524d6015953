package scan

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// LoadGitignore builds an IgnoreFunc from the project's .gitignore, or nil
// when none exists. The caller decides whether to honor it alongside the
// explicit exclude patterns.
func LoadGitignore(root string) IgnoreFunc {
	matcher, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil || matcher == nil {
		return nil
	}
	return matcher.MatchesPath
}
