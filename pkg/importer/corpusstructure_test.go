package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/annatto/pkg/graph"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestImportCorpusGraphFromFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "mycorpus")
	writeFiles(t, root, map[string]string{
		"b.txt":        "",
		"a.txt":        "",
		"ignored.bin":  "",
		"sub/doc1.txt": "",
	})

	u := graph.NewGraphUpdate()
	refs, err := ImportCorpusGraphFromFiles(u, root, []string{"txt"})
	require.NoError(t, err)

	// Directories ascend before their files, siblings sort lexicographically
	// and unknown extensions are ignored.
	var names []string
	for _, ref := range refs {
		names = append(names, ref.NodeName)
	}
	assert.Equal(t, []string{"mycorpus/sub/doc1", "mycorpus/a", "mycorpus/b"}, names)

	g, err := graph.NewGraph(graph.Options{})
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.ApplyUpdate(u, nil))

	// The corpus skeleton is complete.
	for _, name := range []string{"mycorpus", "mycorpus/sub", "mycorpus/a", "mycorpus/sub/doc1"} {
		id, ok := g.GetNodeIDFromName(name)
		require.True(t, ok, "node %s missing", name)
		nodeType, _, err := g.GetValueForItem(id, graph.NodeTypeKey)
		require.NoError(t, err)
		assert.Equal(t, graph.NodeTypeCorpus, nodeType)
	}

	// Documents carry annis::doc with the file stem.
	docID, _ := g.GetNodeIDFromName("mycorpus/sub/doc1")
	doc, ok, err := g.GetValueForItem(docID, graph.DocKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "doc1", doc)

	// PartOf leads from the document to the root.
	partOf := g.GetGraphStorage(graph.PartOfComponent)
	rootID, _ := g.GetNodeIDFromName("mycorpus")
	connected, err := partOf.IsConnected(docID, rootID, 1, graph.Unbounded)
	require.NoError(t, err)
	assert.True(t, connected)

	// The ignored file produced no node.
	_, ok = g.GetNodeIDFromName("mycorpus/ignored")
	assert.False(t, ok)
}

func TestImportCorpusGraphFromEmptyDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.MkdirAll(root, 0755))

	u := graph.NewGraphUpdate()
	refs, err := ImportCorpusGraphFromFiles(u, root, []string{"txt"})
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, 1, u.Len(), "only the corpus node itself")
}
