package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"scanpack/internal/agent"
	"scanpack/internal/manifest"
	"scanpack/internal/partition"
	"scanpack/internal/project"
	"scanpack/internal/scan"
)

func manifestFor(files ...scan.FileInfo) manifest.Manifest {
	tree := &scan.DirectoryNode{Files: files}
	for _, f := range files {
		tree.TotalTokens += f.Tokens
		tree.FileCount++
	}
	var names []string
	for _, f := range files {
		names = append(names, f.RelPath)
	}
	parts := []partition.Spec{{ID: "P001", Files: names, Tokens: tree.TotalTokens, Priority: 10}}
	return manifest.Build("/proj", tree, nil, project.GlobalContext{ProjectName: "proj"}, parts)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := manifestFor(scan.FileInfo{RelPath: "a.go", Size: 40, Tokens: 10})
	cp := New(m)
	cp.MarkPartition(agent.Result{PartitionID: "P001", Confidence: 7, Coverage: 7})

	if err := Save(cp, dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected checkpoint, got nil")
	}
	if loaded.Hash != cp.Hash || loaded.Phase != PhaseExploration {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if len(loaded.CompletedPartitions) != 1 || loaded.PartitionResults["P001"].Confidence != 7 {
		t.Fatalf("completed work lost on round trip: %+v", loaded)
	}
}

func TestLoadMissingIsNil(t *testing.T) {
	cp, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cp != nil {
		t.Fatalf("expected nil checkpoint for fresh directory")
	}
}

func TestLoadCorruptIsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ToolingDir, "scan-checkpoint.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{{{ not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cp, err := Load(dir)
	if err != nil {
		t.Fatalf("corrupt checkpoint must not be fatal: %v", err)
	}
	if cp != nil {
		t.Fatalf("corrupt checkpoint must read as absent")
	}
}

func TestPhaseMovesForwardOnly(t *testing.T) {
	cp := New(manifestFor(scan.FileInfo{RelPath: "a.go", Tokens: 10}))
	if err := cp.Advance(PhaseSynthesis); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := cp.Advance(PhaseExploration); err == nil {
		t.Fatalf("expected backward phase move to fail")
	}
	if err := cp.Advance(PhaseSynthesis); err == nil {
		t.Fatalf("expected same-phase move to fail")
	}
	if err := cp.Advance(PhaseIngestion); err != nil {
		t.Fatalf("advance to ingestion: %v", err)
	}
}

func TestRemainingAndComplete(t *testing.T) {
	tree := &scan.DirectoryNode{
		Files: []scan.FileInfo{
			{RelPath: "a.go", Size: 40, Tokens: 10},
			{RelPath: "b.go", Size: 40, Tokens: 10},
		},
		TotalTokens: 20, FileCount: 2,
	}
	parts := []partition.Spec{
		{ID: "P001", Files: []string{"a.go"}, Priority: 5},
		{ID: "P002", Files: []string{"b.go"}, Priority: 5},
	}
	m := manifest.Build("/proj", tree, nil, project.GlobalContext{}, parts)
	cp := New(m)

	if got := cp.Remaining(); len(got) != 2 {
		t.Fatalf("expected 2 remaining, got %v", got)
	}
	cp.MarkPartition(agent.Result{PartitionID: "P001", Confidence: 5, Coverage: 5})
	if got := cp.Remaining(); len(got) != 1 || got[0] != "P002" {
		t.Fatalf("expected P002 remaining, got %v", got)
	}
	// Re-marking does not duplicate completion entries.
	cp.MarkPartition(agent.Result{PartitionID: "P001", Confidence: 9, Coverage: 9})
	if len(cp.CompletedPartitions) != 1 {
		t.Fatalf("re-marking duplicated completion: %v", cp.CompletedPartitions)
	}

	cp.MarkPartition(agent.Result{PartitionID: "P002", Confidence: 5, Coverage: 5})
	if cp.Complete() {
		t.Fatalf("pipeline not complete before synthesis and ingestion")
	}
	cp.SynthesisComplete = true
	cp.StoredRecordIDs = []string{"K-1"}
	if !cp.Complete() {
		t.Fatalf("expected terminal completion")
	}
}

func TestShouldResumeDetectsChangedCodebase(t *testing.T) {
	dir := t.TempDir()
	before := manifestFor(scan.FileInfo{RelPath: "a.go", Size: 40, Tokens: 10})
	if err := Save(New(before), dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	after := manifestFor(
		scan.FileInfo{RelPath: "a.go", Size: 40, Tokens: 10},
		scan.FileInfo{RelPath: "new.go", Size: 12, Tokens: 3},
	)
	decision := ShouldResume(dir, after)
	if decision.Resume {
		t.Fatalf("expected resume=false after codebase change")
	}
	if decision.Reason == "" {
		t.Fatalf("expected a staleness reason")
	}
}

func TestShouldResumeAcceptsUnchangedManifest(t *testing.T) {
	dir := t.TempDir()
	m := manifestFor(scan.FileInfo{RelPath: "a.go", Size: 40, Tokens: 10})
	cp := New(m)
	cp.MarkPartition(agent.Result{PartitionID: "P001", Confidence: 6, Coverage: 6})
	if err := Save(cp, dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh := manifestFor(scan.FileInfo{RelPath: "a.go", Size: 40, Tokens: 10})
	decision := ShouldResume(dir, fresh)
	if !decision.Resume {
		t.Fatalf("expected resume for unchanged manifest: %s", decision.Reason)
	}
	if decision.Checkpoint == nil || len(decision.Checkpoint.CompletedPartitions) != 1 {
		t.Fatalf("expected loaded checkpoint with completed work")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := Remove(dir); err != nil {
		t.Fatalf("remove on empty dir: %v", err)
	}
	m := manifestFor(scan.FileInfo{RelPath: "a.go", Size: 40, Tokens: 10})
	if err := Save(New(m), dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Remove(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if cp, _ := Load(dir); cp != nil {
		t.Fatalf("checkpoint should be gone after remove")
	}
}
