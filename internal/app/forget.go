package app

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"scanpack/internal/repo"
	"scanpack/internal/store"
)

type ForgetResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func runForget(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("forget", flag.ContinueOnError)
	fs.SetOutput(errOut)
	positional, flagArgs, err := splitFlagArgs(args, nil)
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}
	if err := fs.Parse(flagArgs); err != nil {
		return 2
	}

	if len(positional) == 0 || strings.TrimSpace(positional[0]) == "" {
		fmt.Fprintln(errOut, "missing record id")
		return 2
	}
	id := strings.TrimSpace(positional[0])

	root, err := resolveRoot(positional[1:])
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
	deleted, err := st.DeleteRecord(info.ID, id)
	if err != nil {
		fmt.Fprintf(errOut, "forget error: %v\n", err)
		return 1
	}
	if !deleted {
		writeJSON(out, errOut, ForgetResponse{ID: id, Status: "not found"})
		return 1
	}
	return writeJSON(out, errOut, ForgetResponse{ID: id, Status: "forgotten"})
}
