package partition

import "fmt"

// Mode selects the partitioning algorithm. Dispatch goes through the
// builders table in partition.go, never through type switches on data.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeDirectory Mode = "directory"
	ModeFlat      Mode = "flat"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeAuto, ModeDirectory, ModeFlat:
		return Mode(value), nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown partition mode %q", value)
}

// Config is supplied by the caller and never mutated.
type Config struct {
	Mode          Mode `json:"mode"`
	TargetTokens  int  `json:"target_tokens"`
	MinTokens     int  `json:"min_tokens"`
	MaxTokens     int  `json:"max_tokens"`
	MaxPartitions int  `json:"max_partitions"`
}

// Defaults mirror what a mid-size agent context window absorbs comfortably.
const (
	DefaultTargetTokens  = 80000
	DefaultMinTokens     = 5000
	DefaultMaxTokens     = 100000
	DefaultMaxPartitions = 25
)

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.TargetTokens <= 0 {
		c.TargetTokens = DefaultTargetTokens
	}
	if c.MinTokens <= 0 {
		c.MinTokens = DefaultMinTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxPartitions <= 0 {
		c.MaxPartitions = DefaultMaxPartitions
	}
	return c
}

// Spec is one bounded group of files handed to the analysis collaborator.
type Spec struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Directories []string `json:"directories"`
	Files       []string `json:"files"`
	Tokens      int      `json:"tokens"`
	Related     []string `json:"related,omitempty"`
	Priority    int      `json:"priority"`
}
