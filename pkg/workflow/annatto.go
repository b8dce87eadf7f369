package workflow

import (
	"context"

	"github.com/korpling/annatto/pkg/status"
)

// ExecuteWorkflowFile parses and runs a workflow file in one call. This is
// the embedding API: the CLI and tests are thin wrappers around it.
//
// Parse and validation failures short-circuit before any graph is
// constructed; like every other failure they are also delivered as a Failed
// status message.
func ExecuteWorkflowFile(ctx context.Context, path string, sender status.Sender) error {
	w, err := Parse(path)
	if err != nil {
		sender.Send(status.Failed{Err: err})
		return err
	}
	return w.Execute(ctx, sender)
}

// ValidateWorkflowFile parses and type-checks a workflow file without
// executing it.
func ValidateWorkflowFile(path string) (*Workflow, error) {
	return Parse(path)
}
