package app

import (
	"flag"
	"fmt"
	"io"

	"scanpack/internal/checkpoint"
	"scanpack/internal/manifest"
)

type StatusResponse struct {
	Root       string   `json:"root"`
	Checkpoint bool     `json:"checkpoint"`
	Phase      string   `json:"phase,omitempty"`
	Completed  int      `json:"completed,omitempty"`
	Total      int      `json:"total,omitempty"`
	Remaining  []string `json:"remaining,omitempty"`
	Stale      bool     `json:"stale,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

func runStatus(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(errOut)
	positional, flagArgs, err := splitFlagArgs(args, nil)
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

	cp, err := checkpoint.Load(root)
	if err != nil {
		fmt.Fprintf(errOut, "checkpoint error: %v\n", err)
		return 1
	}
	if cp == nil {
		return writeJSON(out, errOut, StatusResponse{Root: root})
	}

	resp := StatusResponse{
		Root:       root,
		Checkpoint: true,
		Phase:      string(cp.Phase),
		Completed:  len(cp.CompletedPartitions),
		Total:      len(cp.Manifest.Partitions),
		Remaining:  cp.Remaining(),
		UpdatedAt:  formatTime(cp.UpdatedAt),
	}

	// A rescan tells whether the checkpoint still matches the tree.
	cfg, err := loadConfig(globals, root)
	if err == nil {
		if tree, _, scanErr := scanTree(root, cfg); scanErr == nil {
			resp.Stale = manifest.Fingerprint(tree) != cp.Hash
		}
	}

	return writeJSON(out, errOut, resp)
}
