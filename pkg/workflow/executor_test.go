package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/annatto/pkg/status"
)

// collectMessages runs the workflow file and returns its result together
// with every status message.
func collectMessages(t *testing.T, path string) (error, []status.Message) {
	t.Helper()
	ch := make(chan status.Message, 1024)
	err := ExecuteWorkflowFile(context.Background(), path, ch)
	close(ch)
	var messages []status.Message
	for msg := range ch {
		messages = append(messages, msg)
	}
	return err, messages
}

func TestExecuteEmptyWorkflow(t *testing.T) {
	path := writeWorkflow(t, "")
	err, messages := collectMessages(t, path)
	require.NoError(t, err)

	require.NotEmpty(t, messages)
	created, ok := messages[0].(status.StepsCreated)
	require.True(t, ok, "first message must be StepsCreated, got %T", messages[0])
	assert.Empty(t, created.Steps)

	for _, msg := range messages {
		_, failed := msg.(status.Failed)
		assert.False(t, failed, "unexpected failure: %v", msg)
	}
}

func TestExecutePipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	// A corpus with one document file; the path importer links it, map adds
	// an annotation, two exporters write in parallel.
	corpusDir := filepath.Join(dir, "corpus")
	require.NoError(t, os.MkdirAll(corpusDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "doc.txt"), []byte("hello"), 0644))

	workflowPath := filepath.Join(dir, "workflow.toml")
	require.NoError(t, os.WriteFile(workflowPath, []byte(`
[[import]]
format = "path"
path = "corpus"

[import.config]
corpus_name = "corpus"

[[graph_op]]
action = "check"

[[graph_op.config.tests]]
query = "annis::file"
expected = 1
description = "one linked file"

[[export]]
format = "graphml"
path = "out-graphml"

[[export]]
format = "meta"
path = "out-meta"

[export.config]
name_key = "annis::node_name"
`), 0644))

	err, messages := collectMessages(t, workflowPath)
	require.NoError(t, err)

	// StepsCreated is first and lists all four steps.
	created, ok := messages[0].(status.StepsCreated)
	require.True(t, ok)
	assert.Len(t, created.Steps, 4)

	// Every step reported StepDone.
	done := make(map[status.StepID]bool)
	for _, msg := range messages {
		if d, ok := msg.(status.StepDone); ok {
			done[d.ID] = true
		}
	}
	assert.Len(t, done, 4)

	// Both exporters wrote their artifacts.
	_, err = os.Stat(filepath.Join(dir, "out-graphml", "corpus.graphml"))
	assert.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(dir, "out-meta"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestExecuteFailingCheck(t *testing.T) {
	path := writeWorkflow(t, `
[[import]]
format = "none"
path = "in"

[[graph_op]]
action = "check"

[[graph_op.config.tests]]
query = "tok"
expected = 99
description = "impossible"

[[export]]
format = "graphml"
path = "never-written"
`)
	err, messages := collectMessages(t, path)
	var conversionFailed *status.ConversionFailedError
	require.ErrorAs(t, err, &conversionFailed)

	sawFailed := false
	for _, msg := range messages {
		if _, ok := msg.(status.Failed); ok {
			sawFailed = true
		}
	}
	assert.True(t, sawFailed, "failure must also appear on the status channel")

	// The export phase never started.
	_, statErr := os.Stat(filepath.Join(filepath.Dir(path), "never-written"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecuteUnknownModuleFailsBeforeGraphConstruction(t *testing.T) {
	path := writeWorkflow(t, `
[[graph_op]]
action = "bogus"
`)
	err, messages := collectMessages(t, path)
	var noSuchModule *status.NoSuchModuleError
	require.ErrorAs(t, err, &noSuchModule)

	// Validation failures short-circuit: no StepsCreated is emitted.
	for _, msg := range messages {
		_, created := msg.(status.StepsCreated)
		assert.False(t, created)
	}
}

func TestExecuteImportErrorSkipsLaterPhases(t *testing.T) {
	dir := t.TempDir()
	workflowPath := filepath.Join(dir, "workflow.toml")
	require.NoError(t, os.WriteFile(workflowPath, []byte(`
[[import]]
format = "graphml"
path = "missing-input"

[[export]]
format = "graphml"
path = "out"
`), 0644))

	err, _ := collectMessages(t, workflowPath)
	var conversionFailed *status.ConversionFailedError
	require.ErrorAs(t, err, &conversionFailed)
	require.Len(t, conversionFailed.Errors, 1)
	var importErr *status.ImportError
	assert.ErrorAs(t, conversionFailed.Errors[0], &importErr)

	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr))
}
