package app

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"scanpack/internal/repo"
	"scanpack/internal/store"
)

type SearchResponse struct {
	ProjectID string            `json:"project_id"`
	Query     string            `json:"query"`
	Hits      []store.SearchHit `json:"hits"`
}

func runSearch(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(errOut)
	limit := fs.Int("limit", 10, "Maximum hits")
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

	if len(positional) == 0 || strings.TrimSpace(positional[0]) == "" {
		fmt.Fprintln(errOut, "missing query")
		return 2
	}
	query := positional[0]

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
	hits, err := st.SearchRecords(info.ID, query, *limit)
	if err != nil {
		fmt.Fprintf(errOut, "search error: %v\n", err)
		return 1
	}

	return writeJSON(out, errOut, SearchResponse{
		ProjectID: info.ID,
		Query:     query,
		Hits:      hits,
	})
}
