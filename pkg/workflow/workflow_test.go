package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/annatto/pkg/exporter"
	"github.com/korpling/annatto/pkg/manipulator"
	"github.com/korpling/annatto/pkg/status"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseWorkflow(t *testing.T) {
	path := writeWorkflow(t, `
[[import]]
format = "none"
path = "in"

[[graph_op]]
action = "check"

[graph_op.config]
report = true

[[graph_op.config.tests]]
query = "tok"
expected = 0
description = "no tokens"

[[export]]
format = "graphml"
path = "out"

[export.config]
zip = true
`)
	w, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, w.ImportSteps, 1)
	require.Len(t, w.GraphOpSteps, 1)
	require.Len(t, w.ExportSteps, 1)

	// Relative paths resolve against the workflow directory.
	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "in"), w.ImportSteps[0].Path)
	assert.Equal(t, filepath.Join(dir, "out"), w.ExportSteps[0].Path)

	check, ok := w.GraphOpSteps[0].Module.(*manipulator.Check)
	require.True(t, ok)
	assert.True(t, check.Report)
	require.Len(t, check.Tests, 1)
	assert.Equal(t, "no tokens", check.Tests[0].Description)

	graphml, ok := w.ExportSteps[0].Module.(*exporter.ExportGraphML)
	require.True(t, ok)
	assert.True(t, graphml.Zip)
}

func TestParseRejectsUnknownModule(t *testing.T) {
	path := writeWorkflow(t, `
[[import]]
format = "does-not-exist"
path = "in"
`)
	_, err := Parse(path)
	var noSuchModule *status.NoSuchModuleError
	require.ErrorAs(t, err, &noSuchModule)
	assert.Equal(t, "does-not-exist", noSuchModule.Name)
}

func TestParseRejectsUnknownConfigField(t *testing.T) {
	path := writeWorkflow(t, `
[[export]]
format = "graphml"
path = "out"

[export.config]
zip = true
frobnicate = 1
`)
	_, err := Parse(path)
	var parseErr *status.ParseWorkflowFileError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "frobnicate")
}

func TestParseRejectsDuplicateSteps(t *testing.T) {
	path := writeWorkflow(t, `
[[import]]
format = "none"
path = "in"

[[import]]
format = "none"
path = "in"
`)
	_, err := Parse(path)
	var parseErr *status.ParseWorkflowFileError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.toml"))
	var readErr *status.ReadWorkflowFileError
	require.ErrorAs(t, err, &readErr)
}

func TestEmptyWorkflowParsesAndValidates(t *testing.T) {
	path := writeWorkflow(t, "")
	w, err := ValidateWorkflowFile(path)
	require.NoError(t, err)
	assert.Empty(t, w.StepIDs())
}

func TestStepIDEquality(t *testing.T) {
	a := status.StepID{ModuleName: "graphml", Path: "/a"}
	b := status.StepID{ModuleName: "graphml", Path: "/a"}
	c := status.StepID{ModuleName: "graphml", Path: "/b"}
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestConfigFields(t *testing.T) {
	fields := ConfigFields(&exporter.ExportGraphML{})
	require.Len(t, fields, 1)
	assert.Equal(t, "zip", fields[0].Name)
	assert.NotEmpty(t, fields[0].Description)
}

func TestRegistryDescribe(t *testing.T) {
	for _, name := range append(append(ImporterNames(), ManipulatorNames()...), ExporterNames()...) {
		cfg, ok := Describe(name)
		require.True(t, ok, "module %s has no description", name)
		assert.Equal(t, name, cfg.Name)
		assert.NotEmpty(t, cfg.Description)
	}
}
