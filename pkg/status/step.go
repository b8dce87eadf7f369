// Package status carries everything the conversion pipeline reports while it
// runs: the closed error taxonomy, the asynchronous status message channel,
// step identifiers and the per-step progress reporter.
//
// Modules never print to the terminal themselves. They either hold a Sender
// (the write end of the status channel, supplied by the caller) or nothing at
// all, in which case the progress reporter falls back to the process logger.
//
// Example:
//
//	ch := make(chan status.Message, 64)
//	go consume(ch)
//
//	reporter := status.NewProgressReporter(ch, stepID, uint64(len(files)))
//	for _, f := range files {
//		process(f)
//		reporter.Worked(1)
//	}
package status

import "fmt"

// StepID identifies one module invocation inside a workflow.
//
// Two steps are equal iff both the module name and the path are equal, which
// is what makes StepID usable as a map key for progress tracking. The path is
// empty for steps that do not operate on a path (all manipulators).
type StepID struct {
	// ModuleName is the registry name of the module ("graphml", "check", ...).
	ModuleName string
	// Path is the resolved input or output path of the step, empty if none.
	Path string
}

// String renders the display form "module_name@path", or just "module_name"
// when the step has no path.
func (s StepID) String() string {
	if s.Path == "" {
		return s.ModuleName
	}
	return fmt.Sprintf("%s@%s", s.ModuleName, s.Path)
}
