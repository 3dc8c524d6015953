package app

import (
	"flag"
	"fmt"
	"io"

	"scanpack/internal/repo"
	"scanpack/internal/store"
)

type ListResponse struct {
	ProjectID string         `json:"project_id"`
	Records   []store.Record `json:"records"`
}

func runList(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	limit := fs.Int("limit", 50, "Maximum records")
	positional, flagArgs, err := splitFlagArgs(args, map[string]flagSpec{
		"limit": {RequiresValue: true},
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

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintf(errOut, "store open error: %v\n", err)
		return 1
	}
	defer st.Close()

	info := repo.Detect(root)
	records, err := st.ListRecords(info.ID, *limit)
	if err != nil {
		fmt.Fprintf(errOut, "list error: %v\n", err)
		return 1
	}

	return writeJSON(out, errOut, ListResponse{
		ProjectID: info.ID,
		Records:   records,
	})
}
