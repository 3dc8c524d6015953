package agent

import (
	"encoding/json"

	"scanpack/internal/partition"
	"scanpack/internal/project"
)

// Request is the JSON payload handed to the external analysis collaborator
// for one partition. This core only produces it; the invocation layer
// lives outside the repo.
type Request struct {
	Partition partition.Spec        `json:"partition"`
	Context   project.GlobalContext `json:"context"`
}

func NewRequest(spec partition.Spec, ctx project.GlobalContext) Request {
	return Request{Partition: spec, Context: ctx}
}

func (r Request) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Runner dispatches one exploration request and returns the collaborator's
// raw response bytes. Implementations live outside this core; the response
// is always pushed through ParseResult so a broken runner can never abort
// a batch.
type Runner interface {
	Explore(req Request) ([]byte, error)
}
