package app

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"scanpack/internal/checkpoint"
	"scanpack/internal/store"
	"scanpack/internal/token"
)

type DoctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type DoctorResponse struct {
	Root   string        `json:"root"`
	Checks []DoctorCheck `json:"checks"`
}

func runDoctor(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
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

	resp := DoctorResponse{Root: root}
	failed := false
	check := func(name, status, detail string) {
		if status == "fail" {
			failed = true
		}
		resp.Checks = append(resp.Checks, DoctorCheck{Name: name, Status: status, Detail: detail})
	}

	cfg, err := loadConfig(globals, root)
	if err != nil {
		check("config", "fail", err.Error())
		writeJSON(out, errOut, resp)
		return 1
	}
	check("config", "ok", "")

	probe := filepath.Join(cfg.DataDir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		check("data dir writable", "fail", err.Error())
	} else {
		os.Remove(probe)
		check("data dir writable", "ok", cfg.DataDir)
	}

	if st, err := store.Open(cfg.DBPath()); err != nil {
		check("knowledge store", "fail", err.Error())
	} else {
		st.Close()
		check("knowledge store", "ok", cfg.DBPath())
	}

	if _, err := token.New(cfg.Tokenizer); err != nil {
		check("tokenizer", "warn", err.Error())
	} else {
		check("tokenizer", "ok", cfg.Tokenizer)
	}

	if _, err := exec.LookPath("git"); err != nil {
		check("git", "warn", "not found; project ids fall back to path hashes")
	} else {
		check("git", "ok", "")
	}

	if cp, err := checkpoint.Load(root); err != nil {
		check("checkpoint", "fail", err.Error())
	} else if cp == nil {
		check("checkpoint", "ok", "none")
	} else {
		check("checkpoint", "ok", fmt.Sprintf("phase %s, %d/%d partitions",
			cp.Phase, len(cp.CompletedPartitions), len(cp.Manifest.Partitions)))
	}

	code := writeJSON(out, errOut, resp)
	if failed {
		return 1
	}
	return code
}
