package importer

import (
	"context"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// CreateEmptyCorpus is a special importer that imports nothing. It is useful
// as the starting point of workflows that build their corpus entirely with
// graph operations.
type CreateEmptyCorpus struct{}

// ImportCorpus returns an empty update log.
func (*CreateEmptyCorpus) ImportCorpus(_ context.Context, _ string, stepID status.StepID, sender status.Sender) (*graph.GraphUpdate, error) {
	progress := status.NewProgressReporter(sender, stepID, 1)
	update := graph.NewGraphUpdate()
	progress.Worked(1)
	return update, nil
}

// FileExtensions returns no extensions; the importer does not read files.
func (*CreateEmptyCorpus) FileExtensions() []string { return nil }
