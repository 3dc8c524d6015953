package app

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"scanpack/internal/agent"
	"scanpack/internal/checkpoint"
	"scanpack/internal/manifest"
	"scanpack/internal/partition"
	"scanpack/internal/repo"
	"scanpack/internal/store"
)

type AnalyzeResponse struct {
	Root       string           `json:"root"`
	Hash       string           `json:"hash"`
	Resumed    bool             `json:"resumed"`
	Reason     string           `json:"reason,omitempty"`
	Partitions int              `json:"partitions"`
	Explored   int              `json:"explored"`
	Failures   []string         `json:"failures,omitempty"`
	Knowledge  *agent.Knowledge `json:"knowledge,omitempty"`
	RecordIDs  []string         `json:"record_ids,omitempty"`
}

// fileRunner fulfils exploration from pre-computed response files: the
// collaborating agent drops <partition-id>.json into the results dir and
// analyze picks them up. Missing or malformed files degrade to a
// zero-confidence fallback rather than aborting the run.
type fileRunner struct {
	resultsDir string
	payloadDir string
}

func (r fileRunner) Explore(req agent.Request) ([]byte, error) {
	if r.payloadDir != "" {
		payload, err := req.Marshal()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(r.payloadDir, req.Partition.ID+".request.json")
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return nil, err
		}
	}
	if r.resultsDir == "" {
		return nil, fmt.Errorf("no results dir configured")
	}
	return os.ReadFile(filepath.Join(r.resultsDir, req.Partition.ID+".json"))
}

func runAnalyze(globals globalFlags, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(errOut)
	resultsDir := fs.String("results-dir", "", "Directory holding <partition-id>.json agent responses")
	payloadDir := fs.String("payload-dir", "", "Directory to write partition request payloads into")
	parallel := fs.Int("parallel", 0, "Partitions explored per batch")
	resume := fs.Bool("resume", false, "Require a valid checkpoint to resume from")
	fresh := fs.Bool("fresh", false, "Discard any existing checkpoint")
	mode := fs.String("mode", "", "Partition mode: auto, directory, or flat")
	positional, flagArgs, err := splitFlagArgs(args, map[string]flagSpec{
		"results-dir": {RequiresValue: true},
		"payload-dir": {RequiresValue: true},
		"parallel":    {RequiresValue: true},
		"resume":      {},
		"fresh":       {},
		"mode":        {RequiresValue: true},
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
	if *parallel > 0 {
		cfg.Parallel = *parallel
	}

	if *payloadDir != "" {
		if err := os.MkdirAll(*payloadDir, 0o755); err != nil {
			fmt.Fprintf(errOut, "payload dir error: %v\n", err)
			return 1
		}
	}

	m, err := buildManifest(root, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "analysis error: %v\n", err)
		return 1
	}

	resp := AnalyzeResponse{
		Root:       root,
		Hash:       m.Hash,
		Partitions: len(m.Partitions),
	}

	var cp *checkpoint.Checkpoint
	if *fresh {
		if err := checkpoint.Remove(root); err != nil {
			fmt.Fprintf(errOut, "checkpoint error: %v\n", err)
			return 1
		}
		resp.Reason = "fresh run requested"
	} else {
		decision := checkpoint.ShouldResume(root, m)
		resp.Reason = decision.Reason
		if decision.Resume {
			cp = decision.Checkpoint
			resp.Resumed = true
		} else if *resume {
			fmt.Fprintf(errOut, "cannot resume: %s\n", decision.Reason)
			return 1
		}
	}
	if cp == nil {
		cp = checkpoint.New(m)
		if err := checkpoint.Save(cp, root); err != nil {
			fmt.Fprintf(errOut, "checkpoint error: %v\n", err)
			return 1
		}
	}

	runner := fileRunner{resultsDir: *resultsDir, payloadDir: *payloadDir}
	if err := explore(cp, m, runner, cfg.Parallel, root); err != nil {
		fmt.Fprintf(errOut, "exploration error: %v\n", err)
		return 1
	}
	resp.Explored = len(cp.CompletedPartitions)

	if cp.Phase == checkpoint.PhaseExploration {
		if err := cp.Advance(checkpoint.PhaseSynthesis); err != nil {
			fmt.Fprintf(errOut, "phase error: %v\n", err)
			return 1
		}
	}
	if !cp.SynthesisComplete || cp.Knowledge == nil {
		knowledge := agent.Synthesize(m.Context, cp.PartitionResults)
		cp.Knowledge = &knowledge
		cp.SynthesisComplete = true
		if err := checkpoint.Save(cp, root); err != nil {
			fmt.Fprintf(errOut, "checkpoint error: %v\n", err)
			return 1
		}
	}
	resp.Knowledge = cp.Knowledge
	resp.Failures = cp.Knowledge.Failures

	if cp.Phase == checkpoint.PhaseSynthesis {
		if err := cp.Advance(checkpoint.PhaseIngestion); err != nil {
			fmt.Fprintf(errOut, "phase error: %v\n", err)
			return 1
		}
	}
	if len(cp.StoredRecordIDs) == 0 {
		ids, err := ingest(cfg.DBPath(), root, m, cp)
		if err != nil {
			// Progress so far stays resumable.
			_ = checkpoint.Save(cp, root)
			fmt.Fprintf(errOut, "ingestion error: %v\n", err)
			return 1
		}
		cp.StoredRecordIDs = ids
	}
	resp.RecordIDs = cp.StoredRecordIDs

	if err := checkpoint.Remove(root); err != nil {
		fmt.Fprintf(errOut, "checkpoint error: %v\n", err)
		return 1
	}
	return writeJSON(out, errOut, resp)
}

// explore runs the remaining partitions batch by batch, saving the
// checkpoint after every completed partition so an interrupted run loses
// at most the batch in flight.
func explore(cp *checkpoint.Checkpoint, m manifest.Manifest, runner agent.Runner, parallel int, root string) error {
	remaining := cp.Remaining()
	if len(remaining) == 0 {
		return nil
	}

	for _, batch := range partition.Batches(remaining, parallel) {
		results := make([]agent.Result, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			spec, ok := m.PartitionByID(id)
			if !ok {
				results[i] = agent.FallbackResult(id, fmt.Errorf("partition %s not in manifest", id))
				continue
			}
			wg.Add(1)
			go func(i int, spec partition.Spec) {
				defer wg.Done()
				data, err := runner.Explore(agent.NewRequest(spec, m.Context))
				if err != nil {
					results[i] = agent.FallbackResult(spec.ID, err)
					return
				}
				results[i] = agent.ParseResult(spec.ID, data)
			}(i, spec)
		}
		wg.Wait()

		for _, res := range results {
			cp.MarkPartition(res)
			if err := checkpoint.Save(cp, root); err != nil {
				return err
			}
		}
	}
	return nil
}

// ingest writes synthesized knowledge and per-partition insights into the
// knowledge store, returning the new record ids.
func ingest(dbPath, root string, m manifest.Manifest, cp *checkpoint.Checkpoint) ([]string, error) {
	if cp.Knowledge == nil {
		return nil, fmt.Errorf("no synthesized knowledge to ingest")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	info := repo.Detect(root)
	if err := st.EnsureProject(info.ID, root, m.Hash, info.Head); err != nil {
		return nil, err
	}

	var ids []string
	k := cp.Knowledge
	rec, err := st.AddRecord(store.AddRecordInput{
		ProjectID:    info.ID,
		Kind:         store.KindKnowledge,
		Title:        k.ProjectName + " overview",
		Body:         k.Summary,
		AnchorCommit: info.Head,
	})
	if err != nil {
		return nil, err
	}
	ids = append(ids, rec.ID)

	for _, id := range cp.CompletedPartitions {
		res, ok := cp.PartitionResults[id]
		if !ok || len(res.Insights) == 0 {
			continue
		}
		spec, ok := m.PartitionByID(id)
		title := id
		if ok {
			title = id + ": " + spec.Description
		}
		rec, err := st.AddRecord(store.AddRecordInput{
			ProjectID:    info.ID,
			Kind:         store.KindInsight,
			Title:        title,
			Body:         joinInsights(res),
			PartitionID:  id,
			AnchorCommit: info.Head,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func joinInsights(res agent.Result) string {
	lines := make([]string, len(res.Insights))
	for i, insight := range res.Insights {
		lines[i] = "- " + insight
	}
	return strings.Join(lines, "\n")
}
