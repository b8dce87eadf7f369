package status

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// The error taxonomy is a closed set: every failure the pipeline can surface
// is one of the types below. Errors carry enough context (module name, path,
// underlying cause) to be printed verbatim by the CLI.

// ReadWorkflowFileError reports that a workflow file could not be read.
type ReadWorkflowFileError struct {
	Path  string
	Cause error
}

func (e *ReadWorkflowFileError) Error() string {
	return fmt.Sprintf("could not read workflow file %s: %v", e.Path, e.Cause)
}

func (e *ReadWorkflowFileError) Unwrap() error { return e.Cause }

// ParseWorkflowFileError reports that a workflow file could be read but not
// parsed, including rejected configuration fields. Unknown module names are
// reported as NoSuchModuleError.
type ParseWorkflowFileError struct {
	Cause error
}

func (e *ParseWorkflowFileError) Error() string {
	return fmt.Sprintf("could not parse workflow file: %v", e.Cause)
}

func (e *ParseWorkflowFileError) Unwrap() error { return e.Cause }

// NoSuchModuleError reports a module name that is not in the registry.
type NoSuchModuleError struct {
	Name string
}

func (e *NoSuchModuleError) Error() string {
	return fmt.Sprintf("no module with name %q", e.Name)
}

// ImportError reports a failed importer step.
type ImportError struct {
	Module string
	Path   string
	Reason error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import with %s from %s failed: %v", e.Module, e.Path, e.Reason)
}

func (e *ImportError) Unwrap() error { return e.Reason }

// ExportError reports a failed exporter step.
type ExportError struct {
	Module string
	Path   string
	Reason error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export with %s to %s failed: %v", e.Module, e.Path, e.Reason)
}

func (e *ExportError) Unwrap() error { return e.Reason }

// ManipulateError reports a failed manipulator step.
type ManipulateError struct {
	Module string
	Reason error
}

func (e *ManipulateError) Error() string {
	return fmt.Sprintf("graph operation %s failed: %v", e.Module, e.Reason)
}

func (e *ManipulateError) Unwrap() error { return e.Reason }

// UpdateGraphError wraps any inconsistency detected while applying an update
// log to the graph.
type UpdateGraphError struct {
	Reason string
}

func (e *UpdateGraphError) Error() string {
	return fmt.Sprintf("could not update graph: %s", e.Reason)
}

// CreateGraphError reports that the empty graph could not be constructed.
type CreateGraphError struct {
	Reason string
}

func (e *CreateGraphError) Error() string {
	return fmt.Sprintf("could not create graph: %s", e.Reason)
}

// ConversionFailedError aggregates all errors of a failed workflow phase.
// Only the executor constructs it.
type ConversionFailedError struct {
	Errors []error
}

func (e *ConversionFailedError) Error() string {
	combined := &multierror.Error{Errors: e.Errors}
	return fmt.Sprintf("conversion failed: %v", combined.ErrorOrNil())
}

// ChecksFailedError reports the failed test descriptions of a check step.
type ChecksFailedError struct {
	Failed []string
}

func (e *ChecksFailedError) Error() string {
	return fmt.Sprintf("checks failed: %s", strings.Join(e.Failed, ", "))
}

// EndTokenTimeLargerThanStartError reports an inverted time interval on a
// token of a spoken-language transcription.
type EndTokenTimeLargerThanStartError struct {
	Start float64
	End   float64
}

func (e *EndTokenTimeLargerThanStartError) Error() string {
	return fmt.Sprintf("end time %f is larger than start time %f", e.End, e.Start)
}

// IOError wraps a filesystem failure that is not specific to one module.
type IOError struct {
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %v", e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// SyncError reports a failure of the status channel or an internal lock.
type SyncError struct {
	Reason string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("synchronization error: %s", e.Reason)
}
