package repo

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"

	"scanpack/internal/pathutil"
)

// Info identifies the project a scan belongs to. When the root is a git
// work tree the HEAD commit anchors stored knowledge to a revision;
// otherwise the identity is derived from the canonical path alone.
type Info struct {
	ID      string
	GitRoot string
	Head    string
	Branch  string
	HasGit  bool
}

// Detect resolves project identity for a scan root. Git failures are not
// errors: a plain directory gets a path-derived id.
func Detect(root string) Info {
	canonical := pathutil.Canonical(root)

	gitRoot, err := gitOutput(canonical, "rev-parse", "--show-toplevel")
	if err != nil {
		return Info{
			ID:      hashID("p_", canonical),
			GitRoot: canonical,
		}
	}
	gitRoot = pathutil.Canonical(strings.TrimSpace(gitRoot))

	// Best-effort: an unborn HEAD resolves the branch but not the commit,
	// detached HEAD the other way around.
	headOut, _ := gitOutput(gitRoot, "rev-parse", "HEAD")
	branchOut, _ := gitOutput(gitRoot, "symbolic-ref", "--short", "HEAD")

	info := Info{
		GitRoot: gitRoot,
		Head:    strings.TrimSpace(headOut),
		Branch:  strings.TrimSpace(branchOut),
		HasGit:  true,
	}
	info.ID = projectID(info, canonical)
	return info
}

func projectID(info Info, scanRoot string) string {
	origin, _ := gitOutput(info.GitRoot, "config", "--get", "remote.origin.url")
	origin = strings.TrimSpace(origin)
	if origin != "" {
		return hashID("r_", origin)
	}

	first, _ := gitOutput(info.GitRoot, "rev-list", "--max-parents=0", "HEAD")
	first = strings.TrimSpace(first)
	if first != "" {
		if idx := strings.IndexByte(first, '\n'); idx >= 0 {
			first = first[:idx]
		}
		return hashID("r_", info.GitRoot+":"+first)
	}

	return hashID("p_", scanRoot)
}

func hashID(prefix, input string) string {
	sum := sha256.Sum256([]byte(input))
	return prefix + hex.EncodeToString(sum[:])[:8]
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", err
	}
	return stdout.String(), nil
}
