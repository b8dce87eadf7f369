package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/annatto/pkg/graph"
)

// sentenceGraph builds a document with three tokens "I saw it" and one span
// covering the first two tokens.
func sentenceGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewGraph(graph.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	u := graph.NewGraphUpdate()
	u.Add(graph.AddNode{NodeName: "corpus", NodeType: graph.NodeTypeCorpus})
	u.Add(graph.AddNode{NodeName: "corpus/doc", NodeType: graph.NodeTypeCorpus})
	u.Add(graph.AddNodeLabel{NodeName: "corpus/doc", AnnoNs: graph.AnnisNamespace, AnnoName: "doc", AnnoValue: "doc"})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc", TargetNode: "corpus", Layer: graph.AnnisNamespace, ComponentType: graph.PartOf})

	tokens := []struct{ name, value string }{
		{name: "corpus/doc#t1", value: "I"},
		{name: "corpus/doc#t2", value: "saw"},
		{name: "corpus/doc#t3", value: "it"},
	}
	for _, tok := range tokens {
		u.Add(graph.AddNode{NodeName: tok.name, NodeType: graph.NodeTypeNode})
		u.Add(graph.AddNodeLabel{NodeName: tok.name, AnnoNs: graph.AnnisNamespace, AnnoName: "tok", AnnoValue: tok.value})
		u.Add(graph.AddEdge{SourceNode: tok.name, TargetNode: "corpus/doc", Layer: graph.AnnisNamespace, ComponentType: graph.PartOf})
	}
	u.Add(graph.AddEdge{SourceNode: "corpus/doc#t1", TargetNode: "corpus/doc#t2", Layer: graph.AnnisNamespace, ComponentType: graph.Ordering})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc#t2", TargetNode: "corpus/doc#t3", Layer: graph.AnnisNamespace, ComponentType: graph.Ordering})

	// A span node covering t1 and t2.
	u.Add(graph.AddNode{NodeName: "corpus/doc#span1", NodeType: graph.NodeTypeNode})
	u.Add(graph.AddNodeLabel{NodeName: "corpus/doc#span1", AnnoNs: graph.AnnisNamespace, AnnoName: "tok", AnnoValue: "I saw"})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc#span1", TargetNode: "corpus/doc#t1", Layer: graph.AnnisNamespace, ComponentType: graph.Coverage})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc#span1", TargetNode: "corpus/doc#t2", Layer: graph.AnnisNamespace, ComponentType: graph.Coverage})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc#span1", TargetNode: "corpus/doc#t1", Layer: graph.AnnisNamespace, ComponentType: graph.LeftToken})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc#span1", TargetNode: "corpus/doc#t2", Layer: graph.AnnisNamespace, ComponentType: graph.RightToken})
	require.NoError(t, g.ApplyUpdate(u, nil))
	return g
}

func mustID(t *testing.T, g *graph.Graph, name string) graph.NodeID {
	t.Helper()
	id, ok := g.GetNodeIDFromName(name)
	require.True(t, ok, "node %s missing", name)
	return id
}

func TestIsToken(t *testing.T) {
	g := sentenceGraph(t)
	tokens, err := NewTokenHelper(g)
	require.NoError(t, err)

	isToken, err := tokens.IsToken(mustID(t, g, "corpus/doc#t1"))
	require.NoError(t, err)
	assert.True(t, isToken)

	// The span carries annis::tok but has outgoing coverage edges.
	isToken, err = tokens.IsToken(mustID(t, g, "corpus/doc#span1"))
	require.NoError(t, err)
	assert.False(t, isToken)

	// The document has no annis::tok at all.
	isToken, err = tokens.IsToken(mustID(t, g, "corpus/doc"))
	require.NoError(t, err)
	assert.False(t, isToken)
}

func TestLeftRightTokenFor(t *testing.T) {
	g := sentenceGraph(t)
	tokens, err := NewTokenHelper(g)
	require.NoError(t, err)

	span := mustID(t, g, "corpus/doc#span1")
	left, ok, err := tokens.LeftTokenFor(span)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustID(t, g, "corpus/doc#t1"), left)

	right, ok, err := tokens.RightTokenFor(span)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustID(t, g, "corpus/doc#t2"), right)

	// A terminal token is its own left and right token.
	t3 := mustID(t, g, "corpus/doc#t3")
	left, ok, err = tokens.LeftTokenFor(t3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t3, left)
}

func TestGetOrderedTokens(t *testing.T) {
	g := sentenceGraph(t)
	tokens, err := NewTokenHelper(g)
	require.NoError(t, err)

	ordered, err := tokens.GetOrderedTokens("corpus/doc", nil)
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{
		mustID(t, g, "corpus/doc#t1"),
		mustID(t, g, "corpus/doc#t2"),
		mustID(t, g, "corpus/doc#t3"),
	}, ordered)

	// Restricting to an unknown parent yields nothing.
	ordered, err = tokens.GetOrderedTokens("unknown", nil)
	require.NoError(t, err)
	assert.Empty(t, ordered)
}

func TestSpannedText(t *testing.T) {
	g := sentenceGraph(t)
	tokens, err := NewTokenHelper(g)
	require.NoError(t, err)

	ordered, err := tokens.GetOrderedTokens("corpus/doc", nil)
	require.NoError(t, err)
	text, err := tokens.SpannedText(ordered)
	require.NoError(t, err)
	assert.Equal(t, "I saw it", text)
}
