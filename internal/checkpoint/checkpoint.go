package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scanpack/internal/agent"
	"scanpack/internal/manifest"
)

// Phase is the pipeline stage the checkpoint has reached. Phases only move
// forward; invalidation discards the checkpoint and restarts at analysis.
type Phase string

const (
	PhaseAnalysis    Phase = "analysis"
	PhaseExploration Phase = "exploration"
	PhaseSynthesis   Phase = "synthesis"
	PhaseIngestion   Phase = "ingestion"
)

var phaseOrder = map[Phase]int{
	PhaseAnalysis:    0,
	PhaseExploration: 1,
	PhaseSynthesis:   2,
	PhaseIngestion:   3,
}

const (
	// ToolingDir holds all scanpack state inside a scanned project.
	ToolingDir = ".scanpack"
	fileName   = "scan-checkpoint.json"
)

// Checkpoint is the persisted progress record for one pipeline run.
// Persistence is one JSON document, fully overwritten on every update.
// There is no file locking: two concurrent runs against the same project
// directory are unsupported and the last writer wins silently.
type Checkpoint struct {
	Hash                string                  `json:"hash"`
	Manifest            manifest.Manifest       `json:"manifest"`
	Phase               Phase                   `json:"phase"`
	CompletedPartitions []string                `json:"completed_partitions"`
	PartitionResults    map[string]agent.Result `json:"partition_results"`
	SynthesisComplete   bool                    `json:"synthesis_complete"`
	Knowledge           *agent.Knowledge        `json:"knowledge,omitempty"`
	StoredRecordIDs     []string                `json:"stored_record_ids,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// New starts a checkpoint for a freshly analyzed manifest; exploration is
// the first phase that produces resumable work.
func New(m manifest.Manifest) *Checkpoint {
	now := time.Now().UTC()
	return &Checkpoint{
		Hash:             m.Hash,
		Manifest:         m,
		Phase:            PhaseExploration,
		PartitionResults: map[string]agent.Result{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Advance moves the phase strictly forward.
func (c *Checkpoint) Advance(next Phase) error {
	cur, ok := phaseOrder[c.Phase]
	if !ok {
		return fmt.Errorf("checkpoint has unknown phase %q", c.Phase)
	}
	target, ok := phaseOrder[next]
	if !ok {
		return fmt.Errorf("unknown phase %q", next)
	}
	if target <= cur {
		return fmt.Errorf("phase moves forward only: %s -> %s", c.Phase, next)
	}
	c.Phase = next
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPartition records one partition's exploration result. Re-marking an
// already completed partition just replaces the stored result.
func (c *Checkpoint) MarkPartition(res agent.Result) {
	if c.PartitionResults == nil {
		c.PartitionResults = map[string]agent.Result{}
	}
	if _, done := c.PartitionResults[res.PartitionID]; !done {
		c.CompletedPartitions = append(c.CompletedPartitions, res.PartitionID)
	}
	c.PartitionResults[res.PartitionID] = res
	c.UpdatedAt = time.Now().UTC()
}

// Remaining is every manifest partition id not yet completed.
func (c *Checkpoint) Remaining() []string {
	done := map[string]bool{}
	for _, id := range c.CompletedPartitions {
		done[id] = true
	}
	var out []string
	for _, id := range c.Manifest.PartitionIDs() {
		if !done[id] {
			out = append(out, id)
		}
	}
	return out
}

// Complete reports terminal completion: no remaining work, synthesis done,
// and downstream records stored.
func (c *Checkpoint) Complete() bool {
	return len(c.Remaining()) == 0 && c.SynthesisComplete && len(c.StoredRecordIDs) > 0
}

// IsValid compares the checkpoint against a freshly recomputed manifest.
// Any mismatch of fingerprint or partition count invalidates the whole
// checkpoint; stale partition results are never partially reused.
func (c *Checkpoint) IsValid(fresh manifest.Manifest) bool {
	if c == nil {
		return false
	}
	if c.Hash != fresh.Hash {
		return false
	}
	return len(c.Manifest.Partitions) == len(fresh.Partitions)
}

func checkpointPath(projectDir string) string {
	return filepath.Join(projectDir, ToolingDir, fileName)
}

// Save overwrites the checkpoint document atomically (tmp + rename).
func Save(c *Checkpoint, projectDir string) error {
	path := checkpointPath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads the persisted checkpoint. A missing or unparsable document
// reads as "no checkpoint"; corruption is never fatal.
func Load(projectDir string) (*Checkpoint, error) {
	data, err := os.ReadFile(checkpointPath(projectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, nil
	}
	if c.PartitionResults == nil {
		c.PartitionResults = map[string]agent.Result{}
	}
	return &c, nil
}

// Remove deletes the checkpoint once the pipeline reaches terminal
// completion or the record is judged stale.
func Remove(projectDir string) error {
	err := os.Remove(checkpointPath(projectDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ResumeDecision is the outcome of ShouldResume.
type ResumeDecision struct {
	Resume     bool        `json:"resume"`
	Checkpoint *Checkpoint `json:"-"`
	Reason     string      `json:"reason"`
}

// ShouldResume decides whether a prior run's checkpoint still applies to
// the freshly recomputed manifest.
func ShouldResume(projectDir string, fresh manifest.Manifest) ResumeDecision {
	cp, err := Load(projectDir)
	if err != nil {
		return ResumeDecision{Resume: false, Reason: fmt.Sprintf("checkpoint unreadable: %v", err)}
	}
	if cp == nil {
		return ResumeDecision{Resume: false, Reason: "no checkpoint found"}
	}
	if cp.Hash != fresh.Hash {
		return ResumeDecision{Resume: false, Reason: "codebase changed since last run; starting fresh"}
	}
	if len(cp.Manifest.Partitions) != len(fresh.Partitions) {
		return ResumeDecision{Resume: false, Reason: "partition layout changed since last run; starting fresh"}
	}
	return ResumeDecision{
		Resume:     true,
		Checkpoint: cp,
		Reason:     fmt.Sprintf("resuming at phase %s with %d partitions remaining", cp.Phase, len(cp.Remaining())),
	}
}
