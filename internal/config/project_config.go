package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectConfig holds per-project overrides read from
// <root>/.scanpack/config.json. Pointer fields distinguish "unset" from
// zero values.
type ProjectConfig struct {
	Include         []string `json:"include,omitempty"`
	Exclude         []string `json:"exclude,omitempty"`
	TargetTokens    *int     `json:"target_tokens,omitempty"`
	MinTokens       *int     `json:"min_tokens,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
	MaxPartitions   *int     `json:"max_partitions,omitempty"`
	Parallel        *int     `json:"parallel,omitempty"`
	Mode            *string  `json:"mode,omitempty"`
	ReadmeMaxTokens *int     `json:"readme_max_tokens,omitempty"`
}

func ProjectConfigPath(root string) string {
	root = strings.TrimSpace(root)
	if root == "" {
		return ""
	}
	return filepath.Join(root, ".scanpack", "config.json")
}

func LoadProjectConfig(root string) (ProjectConfig, bool, error) {
	path := ProjectConfigPath(root)
	if path == "" {
		return ProjectConfig{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ProjectConfig{}, false, nil
		}
		return ProjectConfig{}, false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return ProjectConfig{}, true, nil
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, true, nil
}

// ApplyProjectOverrides layers a project's settings over the global
// config. Zero or blank override values are ignored.
func ApplyProjectOverrides(cfg *Config, root string) error {
	if cfg == nil {
		return nil
	}
	projCfg, ok, err := LoadProjectConfig(root)
	if err != nil || !ok {
		return err
	}
	if len(projCfg.Include) > 0 {
		cfg.Include = projCfg.Include
	}
	if len(projCfg.Exclude) > 0 {
		cfg.Exclude = projCfg.Exclude
	}
	if projCfg.TargetTokens != nil && *projCfg.TargetTokens > 0 {
		cfg.TargetTokens = *projCfg.TargetTokens
	}
	if projCfg.MinTokens != nil && *projCfg.MinTokens > 0 {
		cfg.MinTokens = *projCfg.MinTokens
	}
	if projCfg.MaxTokens != nil && *projCfg.MaxTokens > 0 {
		cfg.MaxTokens = *projCfg.MaxTokens
	}
	if projCfg.MaxPartitions != nil && *projCfg.MaxPartitions > 0 {
		cfg.MaxPartitions = *projCfg.MaxPartitions
	}
	if projCfg.Parallel != nil && *projCfg.Parallel > 0 {
		cfg.Parallel = *projCfg.Parallel
	}
	if projCfg.Mode != nil {
		if mode := strings.TrimSpace(*projCfg.Mode); mode != "" {
			cfg.Mode = mode
		}
	}
	if projCfg.ReadmeMaxTokens != nil && *projCfg.ReadmeMaxTokens > 0 {
		cfg.ReadmeMaxTokens = *projCfg.ReadmeMaxTokens
	}
	return nil
}
