package app

import (
	"flag"
	"fmt"
	"io"

	"scanpack/internal/manifest"
	"scanpack/internal/partition"
	"scanpack/internal/project"
	"scanpack/internal/token"
)

type PartitionResponse struct {
	Root       string           `json:"root"`
	Hash       string           `json:"hash"`
	Mode       string           `json:"mode"`
	Partitions []partition.Spec `json:"partitions"`
}

func runPartition(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("partition", flag.ContinueOnError)
	fs.SetOutput(errOut)
	mode := fs.String("mode", "", "Partition mode: auto, directory, or flat")
	targetTokens := fs.Int("target-tokens", 0, "Target tokens per partition")
	minTokens := fs.Int("min-tokens", 0, "Minimum tokens for a standalone partition")
	maxTokens := fs.Int("max-tokens", 0, "Single-partition ceiling")
	maxPartitions := fs.Int("max-partitions", 0, "Partition count ceiling")
	positional, flagArgs, err := splitFlagArgs(args, map[string]flagSpec{
		"mode":           {RequiresValue: true},
		"target-tokens":  {RequiresValue: true},
		"min-tokens":     {RequiresValue: true},
		"max-tokens":     {RequiresValue: true},
		"max-partitions": {RequiresValue: true},
	})
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}
	if err := fs.Parse(flagArgs); err != nil {
		return 2
	}

	root, err := resolveRoot(positional)
	if err != nil {
		fmt.Fprintf(errOut, "invalid path: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(globals, root)
	if err != nil {
		fmt.Fprintf(errOut, "config error: %v\n", err)
		return 1
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *targetTokens > 0 {
		cfg.TargetTokens = *targetTokens
	}
	if *minTokens > 0 {
		cfg.MinTokens = *minTokens
	}
	if *maxTokens > 0 {
		cfg.MaxTokens = *maxTokens
	}
	if *maxPartitions > 0 {
		cfg.MaxPartitions = *maxPartitions
	}

	pcfg, err := partitionConfig(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}

	tree, _, err := scanTree(root, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "scan error: %v\n", err)
		return 1
	}

	counter, err := token.New(cfg.Tokenizer)
	if err != nil {
		counter = nil
	}
	ctx := project.BuildContext(root, tree, counter, cfg.ReadmeMaxTokens)

	parts, err := partition.Build(tree, ctx.EntryPoints, pcfg)
	if err != nil {
		fmt.Fprintf(errOut, "partition error: %v\n", err)
		return 1
	}

	return writeJSON(out, errOut, PartitionResponse{
		Root:       root,
		Hash:       manifest.Fingerprint(tree),
		Mode:       string(pcfg.Mode),
		Partitions: parts,
	})
}
