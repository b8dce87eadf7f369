package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpusGraphHelper(t *testing.T) {
	g := sentenceGraph(t)
	helper := NewCorpusGraphHelper(g)

	roots, err := helper.RootCorpusNodes()
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, mustID(t, g, "corpus"), roots[0])

	documents, err := helper.DocumentNodes()
	require.NoError(t, err)
	require.Len(t, documents, 1)
	assert.Equal(t, mustID(t, g, "corpus/doc"), documents[0])

	isDoc, err := helper.IsDocument(mustID(t, g, "corpus/doc"))
	require.NoError(t, err)
	assert.True(t, isDoc)

	isDoc, err = helper.IsDocument(mustID(t, g, "corpus"))
	require.NoError(t, err)
	assert.False(t, isDoc)

	isDoc, err = helper.IsDocument(mustID(t, g, "corpus/doc#t1"))
	require.NoError(t, err)
	assert.False(t, isDoc)
}
