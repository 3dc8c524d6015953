package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is one partition's validated exploration outcome. A malformed
// collaborator response never aborts a batch: it degrades to a
// zero-confidence, zero-coverage result carrying the error string.
type Result struct {
	PartitionID string   `json:"partition_id"`
	Insights    []string `json:"insights,omitempty"`
	KeyFiles    []string `json:"key_files,omitempty"`
	CrossRefs   []string `json:"cross_references,omitempty"`
	Confidence  int      `json:"confidence"`
	Coverage    int      `json:"coverage"`
	Error       string   `json:"error,omitempty"`
}

// rawResult uses pointer fields so absent and present-but-wrong values are
// distinguishable during validation.
type rawResult struct {
	Insights   *[]string `json:"insights"`
	KeyFiles   *[]string `json:"key_files"`
	CrossRefs  *[]string `json:"cross_references"`
	Confidence *int      `json:"confidence"`
	Coverage   *int      `json:"coverage"`
}

// ValidateResult strictly decodes a collaborator response. Unlike
// field-by-field coercion with silent defaults, a structural violation is
// a typed failure, so legitimately empty results stay distinguishable
// from garbage.
func ValidateResult(partitionID string, data []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawResult
	if err := dec.Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("decode exploration response: %w", err)
	}
	if raw.Confidence == nil {
		return Result{}, fmt.Errorf("exploration response missing confidence")
	}
	if raw.Coverage == nil {
		return Result{}, fmt.Errorf("exploration response missing coverage")
	}
	if *raw.Confidence < 1 || *raw.Confidence > 10 {
		return Result{}, fmt.Errorf("confidence %d out of range [1,10]", *raw.Confidence)
	}
	if *raw.Coverage < 1 || *raw.Coverage > 10 {
		return Result{}, fmt.Errorf("coverage %d out of range [1,10]", *raw.Coverage)
	}

	res := Result{
		PartitionID: partitionID,
		Confidence:  *raw.Confidence,
		Coverage:    *raw.Coverage,
	}
	if raw.Insights != nil {
		res.Insights = *raw.Insights
	}
	if raw.KeyFiles != nil {
		res.KeyFiles = *raw.KeyFiles
	}
	if raw.CrossRefs != nil {
		res.CrossRefs = *raw.CrossRefs
	}
	return res, nil
}

// ParseResult wraps ValidateResult with the degradation policy: validation
// failures become an explicit-error result so the rest of the batch
// proceeds.
func ParseResult(partitionID string, data []byte) Result {
	res, err := ValidateResult(partitionID, data)
	if err != nil {
		return FallbackResult(partitionID, err)
	}
	return res
}

// FallbackResult is the zero-confidence placeholder recorded when the
// collaborator fails for one partition.
func FallbackResult(partitionID string, err error) Result {
	msg := "exploration failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		PartitionID: partitionID,
		Confidence:  0,
		Coverage:    0,
		Error:       msg,
	}
}
