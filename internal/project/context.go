package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"scanpack/internal/scan"
	"scanpack/internal/token"
)

// GlobalContext is the project-level metadata shipped to the analysis
// collaborator with every partition payload.
type GlobalContext struct {
	ProjectName    string   `json:"project_name"`
	Description    string   `json:"description"`
	Structure      string   `json:"structure"`
	Languages      []string `json:"languages"`
	Frameworks     []string `json:"frameworks,omitempty"`
	EntryPoints    []string `json:"entry_points,omitempty"`
	ConfigSummary  string   `json:"config_summary"`
	Readme         string   `json:"readme,omitempty"`
	PartitionCount int      `json:"partition_count"`
}

const (
	descriptionMaxChars = 500
	maxEntryPoints      = 10
	structureMaxDepth   = 3
)

// BuildContext derives GlobalContext from the scanned tree and a handful of
// well-known files under root. The counter trims the embedded README text;
// pass nil to drop the README from the context.
func BuildContext(root string, tree *scan.DirectoryNode, counter *token.Counter, readmeMaxTokens int) GlobalContext {
	readme := readReadme(root)
	ctx := GlobalContext{
		ProjectName:   resolveName(root),
		Description:   extractDescription(readme),
		Structure:     renderStructure(tree),
		Languages:     rankedLanguages(tree),
		Frameworks:    detectFrameworks(root),
		EntryPoints:   findEntryPoints(tree),
		ConfigSummary: summarizeConfigs(root),
	}
	if counter != nil && readme != "" && readmeMaxTokens > 0 {
		trimmed, _ := counter.Truncate(readme, readmeMaxTokens)
		ctx.Readme = trimmed
	}
	return ctx
}

// Name resolution order: package-manifest name field, then a
// language-specific module path, then the directory basename.
func resolveName(root string) string {
	if name := packageJSONName(root); name != "" {
		return name
	}
	if name := goModuleName(root); name != "" {
		return name
	}
	if name := cargoName(root); name != "" {
		return name
	}
	return filepath.Base(root)
}

func packageJSONName(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}
	var manifest struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return strings.TrimSpace(manifest.Name)
}

func goModuleName(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if modulePath, ok := strings.CutPrefix(line, "module "); ok {
			modulePath = strings.TrimSpace(modulePath)
			if idx := strings.LastIndex(modulePath, "/"); idx >= 0 {
				return modulePath[idx+1:]
			}
			return modulePath
		}
	}
	return ""
}

func cargoName(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return ""
	}
	inPackage := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inPackage = line == "[package]"
			continue
		}
		if !inPackage {
			continue
		}
		if value, ok := strings.CutPrefix(line, "name"); ok {
			value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "="))
			return strings.Trim(value, `"'`)
		}
	}
	return ""
}

func readReadme(root string) string {
	for _, name := range []string{"README.md", "readme.md", "README.rst", "README.txt", "README"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

// extractDescription takes the first non-empty paragraph after the first
// heading of a README, truncated to 500 characters.
func extractDescription(readme string) string {
	if readme == "" {
		return ""
	}
	lines := strings.Split(readme, "\n")
	sawHeading := false
	var paragraph []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if sawHeading && len(paragraph) > 0 {
				break
			}
			sawHeading = true
			continue
		}
		if !sawHeading {
			continue
		}
		if trimmed == "" {
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "![") || strings.HasPrefix(trimmed, "[!") {
			// Badge lines, not prose.
			continue
		}
		paragraph = append(paragraph, trimmed)
	}
	desc := strings.Join(paragraph, " ")
	if len(desc) > descriptionMaxChars {
		desc = desc[:descriptionMaxChars]
	}
	return desc
}

// renderStructure prints an indented directory overview limited to three
// levels, annotated with aggregated token and file counts. It is prompt
// context only; nothing downstream parses it.
func renderStructure(tree *scan.DirectoryNode) string {
	var sb strings.Builder
	var render func(node *scan.DirectoryNode, depth int)
	render = func(node *scan.DirectoryNode, depth int) {
		if depth >= structureMaxDepth {
			return
		}
		for _, child := range node.Children {
			indent := strings.Repeat("  ", depth)
			fmt.Fprintf(&sb, "%s%s/ (%d tokens, %d files)\n",
				indent, path.Base(child.RelPath), child.TotalTokens, child.FileCount)
			render(child, depth+1)
		}
	}
	fmt.Fprintf(&sb, "./ (%d tokens, %d files)\n", tree.TotalTokens, tree.FileCount)
	render(tree, 0)
	return sb.String()
}

func rankedLanguages(tree *scan.DirectoryNode) []string {
	type langShare struct {
		lang   string
		tokens int
	}
	var shares []langShare
	for lang, tokens := range tree.LanguageTokens() {
		if lang == "other" || lang == "" {
			continue
		}
		shares = append(shares, langShare{lang, tokens})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].tokens != shares[j].tokens {
			return shares[i].tokens > shares[j].tokens
		}
		return shares[i].lang < shares[j].lang
	})
	out := make([]string, 0, len(shares))
	for _, s := range shares {
		out = append(out, s.lang)
	}
	return out
}

// frameworkSignature maps a dependency substring in a manifest file to a
// framework name. First match per ecosystem wins.
type frameworkSignature struct {
	needle    string
	framework string
}

var frameworkSignaturesByManifest = map[string][]frameworkSignature{
	"package.json": {
		{`"next"`, "Next.js"},
		{`"react"`, "React"},
		{`"vue"`, "Vue"},
		{`"svelte"`, "Svelte"},
		{`"@angular/core"`, "Angular"},
		{`"express"`, "Express"},
		{`"fastify"`, "Fastify"},
	},
	"go.mod": {
		{"github.com/gin-gonic/gin", "Gin"},
		{"github.com/labstack/echo", "Echo"},
		{"github.com/gofiber/fiber", "Fiber"},
		{"github.com/spf13/cobra", "Cobra"},
	},
	"requirements.txt": {
		{"django", "Django"},
		{"flask", "Flask"},
		{"fastapi", "FastAPI"},
	},
	"pyproject.toml": {
		{"django", "Django"},
		{"flask", "Flask"},
		{"fastapi", "FastAPI"},
	},
	"Cargo.toml": {
		{"actix-web", "Actix"},
		{"axum", "Axum"},
		{"tokio", "Tokio"},
	},
	"pom.xml": {
		{"spring-boot", "Spring Boot"},
	},
	"Gemfile": {
		{"rails", "Rails"},
	},
}

func detectFrameworks(root string) []string {
	manifests := make([]string, 0, len(frameworkSignaturesByManifest))
	for name := range frameworkSignaturesByManifest {
		manifests = append(manifests, name)
	}
	sort.Strings(manifests)

	var out []string
	for _, name := range manifests {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		content := string(data)
		for _, sig := range frameworkSignaturesByManifest[name] {
			if strings.Contains(content, sig.needle) {
				out = append(out, sig.framework)
				break
			}
		}
	}
	return out
}

var entryPointStems = map[string]bool{
	"main":   true,
	"index":  true,
	"app":    true,
	"server": true,
	"mod":    true,
	"lib":    true,
	"cli":    true,
}

func findEntryPoints(tree *scan.DirectoryNode) []string {
	var out []string
	for _, f := range tree.AllFiles() {
		base := path.Base(f.RelPath)
		stem := strings.TrimSuffix(base, path.Ext(base))
		if entryPointStems[strings.ToLower(stem)] {
			out = append(out, f.RelPath)
			if len(out) >= maxEntryPoints {
				break
			}
		}
	}
	return out
}

var wellKnownConfigs = []string{
	"package.json", "tsconfig.json", "go.mod", "Cargo.toml", "pyproject.toml",
	"requirements.txt", "pom.xml", "build.gradle", "Gemfile",
	"Dockerfile", "docker-compose.yml", "Makefile", ".github",
}

func summarizeConfigs(root string) string {
	var present []string
	for _, name := range wellKnownConfigs {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return "no recognized configuration files"
	}
	return "configuration: " + strings.Join(present, ", ")
}
