package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/korpling/annatto/pkg/status"
)

// ImporterStep is one configured importer invocation.
type ImporterStep struct {
	ModuleName string
	Path       string
	Module     Importer
}

// StepID returns the identifier of the step.
func (s *ImporterStep) StepID() status.StepID {
	return status.StepID{ModuleName: s.ModuleName, Path: s.Path}
}

// ManipulatorStep is one configured graph operation.
type ManipulatorStep struct {
	ModuleName string
	Module     Manipulator
}

// StepID returns the identifier of the step.
func (s *ManipulatorStep) StepID() status.StepID {
	return status.StepID{ModuleName: s.ModuleName}
}

// ExporterStep is one configured exporter invocation.
type ExporterStep struct {
	ModuleName string
	Path       string
	Module     Exporter
}

// StepID returns the identifier of the step.
func (s *ExporterStep) StepID() status.StepID {
	return status.StepID{ModuleName: s.ModuleName, Path: s.Path}
}

// Workflow is the parsed, validated conversion pipeline: an ordered importer
// list, a manipulator list and an exporter list, plus the directory of the
// workflow file against which relative paths are resolved.
type Workflow struct {
	ImportSteps  []ImporterStep
	GraphOpSteps []ManipulatorStep
	ExportSteps  []ExporterStep
	Dir          string
}

// StepIDs enumerates the identifiers of all steps in workflow order.
func (w *Workflow) StepIDs() []status.StepID {
	ids := make([]status.StepID, 0, len(w.ImportSteps)+len(w.GraphOpSteps)+len(w.ExportSteps))
	for i := range w.ImportSteps {
		ids = append(ids, w.ImportSteps[i].StepID())
	}
	for i := range w.GraphOpSteps {
		ids = append(ids, w.GraphOpSteps[i].StepID())
	}
	for i := range w.ExportSteps {
		ids = append(ids, w.ExportSteps[i].StepID())
	}
	return ids
}

// rawStep mirrors one [[import]], [[graph_op]] or [[export]] table. The
// module configuration stays an undecoded primitive until the module name
// has selected the concrete configuration type.
type rawStep struct {
	Format string         `toml:"format"`
	Action string         `toml:"action"`
	Path   string         `toml:"path"`
	Config toml.Primitive `toml:"config"`
}

type rawWorkflow struct {
	Import  []rawStep `toml:"import"`
	GraphOp []rawStep `toml:"graph_op"`
	Export  []rawStep `toml:"export"`
}

// Parse reads, parses and validates a workflow file.
//
// Module configurations are decoded strictly: any field that no module
// consumed is rejected with a ParseWorkflowFileError, as are duplicate step
// identifiers and paths missing on import steps.
func Parse(path string) (*Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &status.ReadWorkflowFileError{Path: path, Cause: err}
	}
	dir := filepath.Dir(path)

	var parsed rawWorkflow
	md, err := toml.Decode(string(raw), &parsed)
	if err != nil {
		return nil, &status.ParseWorkflowFileError{Cause: err}
	}

	w := &Workflow{Dir: dir}
	for i := range parsed.Import {
		step := &parsed.Import[i]
		module, ok := newImporter(step.Format)
		if !ok {
			return nil, &status.NoSuchModuleError{Name: step.Format}
		}
		if step.Path == "" {
			return nil, &status.ParseWorkflowFileError{
				Cause: fmt.Errorf("import step %q has no path", step.Format),
			}
		}
		if err := md.PrimitiveDecode(step.Config, module); err != nil {
			return nil, &status.ParseWorkflowFileError{Cause: err}
		}
		w.ImportSteps = append(w.ImportSteps, ImporterStep{
			ModuleName: step.Format,
			Path:       resolvePath(dir, step.Path),
			Module:     module,
		})
	}
	for i := range parsed.GraphOp {
		step := &parsed.GraphOp[i]
		module, ok := newManipulator(step.Action)
		if !ok {
			return nil, &status.NoSuchModuleError{Name: step.Action}
		}
		if err := md.PrimitiveDecode(step.Config, module); err != nil {
			return nil, &status.ParseWorkflowFileError{Cause: err}
		}
		w.GraphOpSteps = append(w.GraphOpSteps, ManipulatorStep{
			ModuleName: step.Action,
			Module:     module,
		})
	}
	for i := range parsed.Export {
		step := &parsed.Export[i]
		module, ok := newExporter(step.Format)
		if !ok {
			return nil, &status.NoSuchModuleError{Name: step.Format}
		}
		if step.Path == "" {
			return nil, &status.ParseWorkflowFileError{
				Cause: fmt.Errorf("export step %q has no path", step.Format),
			}
		}
		if err := md.PrimitiveDecode(step.Config, module); err != nil {
			return nil, &status.ParseWorkflowFileError{Cause: err}
		}
		w.ExportSteps = append(w.ExportSteps, ExporterStep{
			ModuleName: step.Format,
			Path:       resolvePath(dir, step.Path),
			Module:     module,
		})
	}

	// Everything left undecoded is a configuration field no module accepts.
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &status.ParseWorkflowFileError{
			Cause: fmt.Errorf("unknown configuration field %q", undecoded[0].String()),
		}
	}
	if err := validateStepIDs(w); err != nil {
		return nil, err
	}
	return w, nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func validateStepIDs(w *Workflow) error {
	seen := make(map[status.StepID]struct{})
	for _, id := range w.StepIDs() {
		if _, dup := seen[id]; dup {
			return &status.ParseWorkflowFileError{
				Cause: fmt.Errorf("duplicate step %s", id),
			}
		}
		seen[id] = struct{}{}
	}
	return nil
}
