package workflow

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/korpling/annatto/pkg/config"
	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// Execute runs the workflow: import in parallel, merge and apply the update
// logs in listing order, run the graph operations sequentially, export in
// parallel.
//
// Every failure is also delivered as a Failed status message before Execute
// returns it. Cancellation is cooperative through the context; partially
// produced outputs are left in place.
func (w *Workflow) Execute(ctx context.Context, sender status.Sender) error {
	sender.Send(status.StepsCreated{Steps: w.StepIDs()})

	g, err := graph.NewGraph(graph.Options{OnDisk: !config.InMemoryFromEnv(sender)})
	if err != nil {
		sender.Send(status.Failed{Err: err})
		return err
	}
	defer g.Close()

	if err := w.runImportPhase(ctx, g, sender); err != nil {
		sender.Send(status.Failed{Err: err})
		return err
	}
	if err := w.runManipulatePhase(g, sender); err != nil {
		sender.Send(status.Failed{Err: err})
		return err
	}
	if err := w.runExportPhase(ctx, g, sender); err != nil {
		sender.Send(status.Failed{Err: err})
		return err
	}
	return nil
}

// runImportPhase runs every importer on its own task, then applies the
// resulting logs in the order of the importer list, not in completion order.
// Deterministic application order is a correctness requirement: node IDs
// depend on it.
func (w *Workflow) runImportPhase(ctx context.Context, g *graph.Graph, sender status.Sender) error {
	updates := make([]*graph.GraphUpdate, len(w.ImportSteps))
	stepErrs := make([]error, len(w.ImportSteps))

	group, groupCtx := errgroup.WithContext(ctx)
	for i := range w.ImportSteps {
		group.Go(func() error {
			step := &w.ImportSteps[i]
			update, err := step.Module.ImportCorpus(groupCtx, step.Path, step.StepID(), sender)
			if err != nil {
				stepErrs[i] = &status.ImportError{Module: step.ModuleName, Path: step.Path, Reason: err}
				return nil
			}
			updates[i] = update
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var failures []error
	for _, err := range stepErrs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return &status.ConversionFailedError{Errors: failures}
	}

	for i := range w.ImportSteps {
		step := &w.ImportSteps[i]
		if err := applyUpdate(g, updates[i], step.StepID(), sender); err != nil {
			return &status.ConversionFailedError{Errors: []error{err}}
		}
	}
	return nil
}

// applyUpdate replays one importer's log against the graph, reporting the
// application as the progress of that importer's step.
func applyUpdate(g *graph.Graph, update *graph.GraphUpdate, stepID status.StepID, sender status.Sender) error {
	progress := status.NewProgressReporter(sender, stepID, uint64(update.Len()))
	if err := g.ApplyUpdate(update, progress.Info); err != nil {
		return err
	}
	sender.Send(status.StepDone{ID: stepID})
	return nil
}

func (w *Workflow) runManipulatePhase(g *graph.Graph, sender status.Sender) error {
	for i := range w.GraphOpSteps {
		step := &w.GraphOpSteps[i]
		if step.Module.RequiresStatistics() {
			if err := g.EnsureLoaded(); err != nil {
				return &status.ConversionFailedError{Errors: []error{err}}
			}
			if g.GlobalStats() == nil {
				if err := g.CalculateStatistics(); err != nil {
					return &status.ConversionFailedError{Errors: []error{err}}
				}
			}
		}
		if err := step.Module.ManipulateCorpus(g, w.Dir, step.StepID(), sender); err != nil {
			wrapped := &status.ManipulateError{Module: step.ModuleName, Reason: err}
			return &status.ConversionFailedError{Errors: []error{wrapped}}
		}
		sender.Send(status.StepDone{ID: step.StepID()})
	}
	return nil
}

// runExportPhase runs every exporter on its own task over the shared
// read-only graph. A failing exporter does not affect the others; all
// failures are collected.
func (w *Workflow) runExportPhase(ctx context.Context, g *graph.Graph, sender status.Sender) error {
	stepErrs := make([]error, len(w.ExportSteps))

	group, groupCtx := errgroup.WithContext(ctx)
	for i := range w.ExportSteps {
		group.Go(func() error {
			step := &w.ExportSteps[i]
			if err := os.MkdirAll(step.Path, 0755); err != nil {
				stepErrs[i] = &status.ExportError{Module: step.ModuleName, Path: step.Path, Reason: err}
				return nil
			}
			err := step.Module.ExportCorpus(groupCtx, g, step.Path, step.StepID(), sender)
			if err != nil {
				stepErrs[i] = &status.ExportError{Module: step.ModuleName, Path: step.Path, Reason: err}
				return nil
			}
			sender.Send(status.StepDone{ID: step.StepID()})
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var failures []error
	for _, err := range stepErrs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return &status.ConversionFailedError{Errors: failures}
	}
	return nil
}
