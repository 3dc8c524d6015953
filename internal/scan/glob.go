package scan

import (
	"regexp"
	"strings"
)

// Pattern is a compiled exclude/include glob. Supported syntax: `*` matches
// within one path segment, `**` matches across segments, `?` matches a
// single character. A leading `**/` is optional on match, so
// `**/node_modules/**` excludes both `node_modules/x` and `a/node_modules/x`.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

func (p Pattern) String() string { return p.raw }

func (p Pattern) Match(relPath string) bool {
	return p.re.MatchString(relPath)
}

// CompilePatterns translates glob patterns into anchored regexps. Patterns
// that fail to compile are dropped rather than failing the scan.
func CompilePatterns(globs []string) []Pattern {
	out := make([]Pattern, 0, len(globs))
	for _, glob := range globs {
		glob = strings.TrimSpace(glob)
		if glob == "" {
			continue
		}
		re, err := regexp.Compile(translateGlob(glob))
		if err != nil {
			continue
		}
		out = append(out, Pattern{raw: glob, re: re})
	}
	return out
}

func matchAny(patterns []Pattern, relPath string) bool {
	for _, p := range patterns {
		if p.Match(relPath) {
			return true
		}
	}
	return false
}

func translateGlob(glob string) string {
	var sb strings.Builder
	sb.WriteString("^")

	rest := glob
	if strings.HasPrefix(rest, "**/") {
		// A leading **/ also matches zero directories.
		sb.WriteString("(?:.*/)?")
		rest = rest[len("**/"):]
	}

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch c {
		case '*':
			if i+1 < len(rest) && rest[i+1] == '*' {
				sb.WriteString(".*")
				i++
			} else {
				sb.WriteString("[^/]*")
			}
		case '?':
			sb.WriteString("[^/]")
		case '.', '+', '(', ')', '|', '[', ']', '{', '}', '^', '$', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}

	sb.WriteString("$")
	return sb.String()
}
