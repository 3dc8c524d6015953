package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const appDirName = "scanpack"

type Config struct {
	ConfigDir string `toml:"config_dir"`
	DataDir   string `toml:"data_dir"`

	Tokenizer       string   `toml:"tokenizer"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
	TargetTokens    int      `toml:"target_tokens"`
	MinTokens       int      `toml:"min_tokens"`
	MaxTokens       int      `toml:"max_tokens"`
	MaxPartitions   int      `toml:"max_partitions"`
	Parallel        int      `toml:"parallel"`
	Mode            string   `toml:"mode"`
	ReadmeMaxTokens int      `toml:"readme_max_tokens"`
}

func Default() (Config, error) {
	configHome, dataHome, err := xdgHomes()
	if err != nil {
		return Config{}, err
	}

	return Config{
		ConfigDir: filepath.Join(configHome, appDirName),
		DataDir:   filepath.Join(dataHome, appDirName),
		Tokenizer: "cl100k_base",
		Exclude: []string{
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/target/**",
			"**/__pycache__/**",
		},
		TargetTokens:    80000,
		MinTokens:       5000,
		MaxTokens:       100000,
		MaxPartitions:   25,
		Parallel:        3,
		Mode:            "auto",
		ReadmeMaxTokens: 2000,
	}, nil
}

// Load reads config.toml over the defaults. dataDirOverride (from
// --data-dir or SCANPACK_DATA_DIR) wins over the persisted data_dir; it
// is threaded through explicitly rather than held in package state.
func Load(dataDirOverride string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	path := filepath.Join(cfg.ConfigDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.DataDir = resolveDataDir(cfg.DataDir, dataDirOverride)
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Save() error {
	if err := os.MkdirAll(c.ConfigDir, 0o755); err != nil {
		return err
	}
	return writeConfigFile(filepath.Join(c.ConfigDir, "config.toml"), c)
}

// DBPath is the knowledge database location under the data dir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "knowledge.db")
}

func writeConfigFile(path string, cfg Config) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func xdgHomes() (string, string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	dataHome := os.Getenv("XDG_DATA_HOME")

	if configHome != "" && dataHome != "" {
		return configHome, dataHome, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	return configHome, dataHome, nil
}

func resolveDataDir(persisted, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	if env := strings.TrimSpace(os.Getenv("SCANPACK_DATA_DIR")); env != "" {
		return env
	}
	return persisted
}
