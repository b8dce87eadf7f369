// Package workflow drives a conversion: it parses a declarative workflow
// file into an ordered pipeline of import, graph-operation and export steps,
// schedules them, merges the importers' update logs, applies them to a fresh
// graph and reports progress and errors on the status channel.
package workflow

import (
	"context"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// Importer reads one corpus from a path and produces an update log. An
// importer never touches the graph: parallelizing the import phase is only
// possible because its output is data, not side effects.
type Importer interface {
	// ImportCorpus consumes the input path and returns the update log that
	// creates the corpus.
	ImportCorpus(ctx context.Context, inputPath string, stepID status.StepID, sender status.Sender) (*graph.GraphUpdate, error)

	// FileExtensions lists the file extensions (without dot) this importer
	// consumes when scanning a directory. Empty means the importer decides
	// itself.
	FileExtensions() []string
}

// Manipulator mutates the graph in place. Manipulators run strictly
// sequentially, in workflow order, because they typically query the graph
// they are mutating.
type Manipulator interface {
	// ManipulateCorpus reads and writes the graph. Relative paths in the
	// configuration are resolved against workflowDir.
	ManipulateCorpus(g *graph.Graph, workflowDir string, stepID status.StepID, sender status.Sender) error

	// RequiresStatistics reports whether the executor must ensure the graph
	// is loaded and its global statistics computed before this step runs.
	RequiresStatistics() bool
}

// Exporter writes the graph to one or more files below an output path.
// Exporters run in parallel on a shared read-only graph and must not mutate
// it.
type Exporter interface {
	// ExportCorpus writes the graph into outputPath, creating the directory
	// if needed.
	ExportCorpus(ctx context.Context, g *graph.Graph, outputPath string, stepID status.StepID, sender status.Sender) error

	// FileExtension returns the extension (without dot) of the primary
	// artifact this exporter writes.
	FileExtension() string
}

// ModuleConfiguration is the purely reflective description of a module, used
// by the documentation generator.
type ModuleConfiguration struct {
	Name        string
	Description string
}
