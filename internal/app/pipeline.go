package app

import (
	"fmt"
	"os"
	"path/filepath"

	"scanpack/internal/config"
	"scanpack/internal/manifest"
	"scanpack/internal/partition"
	"scanpack/internal/project"
	"scanpack/internal/scan"
	"scanpack/internal/token"
)

// loadConfig layers project overrides from root over global config. The
// data dir override comes from --data-dir via globals.
func loadConfig(globals globalFlags, root string) (config.Config, error) {
	cfg, err := config.Load(globals.DataDir)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ApplyProjectOverrides(&cfg, root); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveRoot takes the optional positional path, defaulting to the
// current directory, and requires it to be an existing directory.
func resolveRoot(positional []string) (string, error) {
	root := "."
	if len(positional) > 0 {
		root = positional[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

func scanTree(root string, cfg config.Config) (*scan.DirectoryNode, []scan.SkippedFile, error) {
	return scan.Scan(root, scan.Options{
		Include: cfg.Include,
		Exclude: cfg.Exclude,
		Ignore:  scan.LoadGitignore(root),
	})
}

func partitionConfig(cfg config.Config) (partition.Config, error) {
	mode, err := partition.ParseMode(cfg.Mode)
	if err != nil {
		return partition.Config{}, err
	}
	return partition.Config{
		Mode:          mode,
		TargetTokens:  cfg.TargetTokens,
		MinTokens:     cfg.MinTokens,
		MaxTokens:     cfg.MaxTokens,
		MaxPartitions: cfg.MaxPartitions,
	}, nil
}

// buildManifest runs the analysis phase end to end: scan, global context,
// partition plan, fingerprinted manifest.
func buildManifest(root string, cfg config.Config) (manifest.Manifest, error) {
	tree, skipped, err := scanTree(root, cfg)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("scan: %w", err)
	}

	// A missing tokenizer only costs the embedded README excerpt.
	counter, err := token.New(cfg.Tokenizer)
	if err != nil {
		counter = nil
	}
	ctx := project.BuildContext(root, tree, counter, cfg.ReadmeMaxTokens)

	pcfg, err := partitionConfig(cfg)
	if err != nil {
		return manifest.Manifest{}, err
	}
	parts, err := partition.Build(tree, ctx.EntryPoints, pcfg)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("partition: %w", err)
	}

	return manifest.Build(root, tree, skipped, ctx, parts), nil
}
