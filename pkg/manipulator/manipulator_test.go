package manipulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// documentGraph builds a small document: three tokens "I saw it" with pos
// annotations and a phrase node dominating the first token.
func documentGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewGraph(graph.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	u := graph.NewGraphUpdate()
	u.Add(graph.AddNode{NodeName: "corpus", NodeType: graph.NodeTypeCorpus})
	u.Add(graph.AddNode{NodeName: "corpus/doc", NodeType: graph.NodeTypeCorpus})
	u.Add(graph.AddNodeLabel{NodeName: "corpus/doc", AnnoNs: graph.AnnisNamespace, AnnoName: "doc", AnnoValue: "doc"})
	u.Add(graph.AddEdge{SourceNode: "corpus/doc", TargetNode: "corpus", Layer: graph.AnnisNamespace, ComponentType: graph.PartOf})

	for _, tok := range []struct{ name, value, pos string }{
		{name: "doc#t1", value: "I", pos: "PRON"},
		{name: "doc#t2", value: "saw", pos: "VERB"},
		{name: "doc#t3", value: "it", pos: "PRON"},
	} {
		u.Add(graph.AddNode{NodeName: tok.name, NodeType: graph.NodeTypeNode})
		u.Add(graph.AddNodeLabel{NodeName: tok.name, AnnoNs: graph.AnnisNamespace, AnnoName: "tok", AnnoValue: tok.value})
		u.Add(graph.AddNodeLabel{NodeName: tok.name, AnnoNs: "", AnnoName: "pos", AnnoValue: tok.pos})
		u.Add(graph.AddEdge{SourceNode: tok.name, TargetNode: "corpus/doc", Layer: graph.AnnisNamespace, ComponentType: graph.PartOf})
	}
	u.Add(graph.AddEdge{SourceNode: "doc#t1", TargetNode: "doc#t2", Layer: graph.AnnisNamespace, ComponentType: graph.Ordering})
	u.Add(graph.AddEdge{SourceNode: "doc#t2", TargetNode: "doc#t3", Layer: graph.AnnisNamespace, ComponentType: graph.Ordering})

	u.Add(graph.AddNode{NodeName: "doc#phrase1", NodeType: graph.NodeTypeNode})
	u.Add(graph.AddNodeLabel{NodeName: "doc#phrase1", AnnoNs: "", AnnoName: "cat", AnnoValue: "NP"})
	u.Add(graph.AddEdge{SourceNode: "doc#phrase1", TargetNode: "doc#t1", Layer: graph.AnnisNamespace, ComponentType: graph.Coverage})
	require.NoError(t, g.ApplyUpdate(u, nil))
	return g
}

func TestCheckPassesAndFails(t *testing.T) {
	g := documentGraph(t)

	passing := &Check{Tests: []Test{
		{Query: "pos=/PRON/", Expected: ExpectedResult{exact: true, count: 2}, Description: "two pronouns"},
		{Query: "tok", Expected: ExpectedResult{interval: true, lower: 1, upper: 10}, Description: "token count in range"},
	}}
	require.NoError(t, passing.ManipulateCorpus(g, "", status.StepID{ModuleName: "check"}, nil))

	failing := &Check{Tests: []Test{
		{Query: "pos=/PRON/", Expected: ExpectedResult{exact: true, count: 2}, Description: "two pronouns"},
		{Query: "pos=/NOUN/", Expected: ExpectedResult{exact: true, count: 1}, Description: "a noun"},
	}}
	err := failing.ManipulateCorpus(g, "", status.StepID{ModuleName: "check"}, nil)
	var checksFailed *status.ChecksFailedError
	require.ErrorAs(t, err, &checksFailed)
	assert.Equal(t, []string{"a noun"}, checksFailed.Failed)
}

func TestExpectedResultUnmarshal(t *testing.T) {
	var e ExpectedResult
	require.NoError(t, e.UnmarshalTOML(int64(3)))
	assert.True(t, e.matches(3))
	assert.False(t, e.matches(4))

	require.NoError(t, e.UnmarshalTOML([]any{int64(1), float64(5)}))
	assert.True(t, e.matches(1))
	assert.True(t, e.matches(5))
	assert.False(t, e.matches(6))

	assert.Error(t, e.UnmarshalTOML("nope"))
	assert.Error(t, e.UnmarshalTOML([]any{int64(1)}))
}

func TestFilterKeepsMatchesAndTokens(t *testing.T) {
	g := documentGraph(t)

	filter := &FilterNodes{Query: "pos=/PRON/", Inverse: false}
	require.NoError(t, filter.ManipulateCorpus(g, "", status.StepID{ModuleName: "filter"}, nil))

	// All terminal tokens survive, matching or not.
	for _, name := range []string{"doc#t1", "doc#t2", "doc#t3"} {
		_, ok := g.GetNodeIDFromName(name)
		assert.True(t, ok, "token %s deleted", name)
	}
	// The non-matching phrase node is gone, the corpus skeleton stays.
	_, ok := g.GetNodeIDFromName("doc#phrase1")
	assert.False(t, ok)
	_, ok = g.GetNodeIDFromName("corpus/doc")
	assert.True(t, ok)
}

func TestFilterInverseDeletesMatches(t *testing.T) {
	g := documentGraph(t)

	filter := &FilterNodes{Query: "cat=/NP/", Inverse: true}
	require.NoError(t, filter.ManipulateCorpus(g, "", status.StepID{ModuleName: "filter"}, nil))

	_, ok := g.GetNodeIDFromName("doc#phrase1")
	assert.False(t, ok)
	for _, name := range []string{"doc#t1", "doc#t2", "doc#t3", "corpus", "corpus/doc"} {
		_, ok := g.GetNodeIDFromName(name)
		assert.True(t, ok, "%s deleted", name)
	}
}

func TestMapAddsAnnotation(t *testing.T) {
	g := documentGraph(t)

	m := &MapAnnos{Rules: []MappingRule{{
		Query: "tok=/I/",
		Ns:    "",
		Name:  "case",
		Value: "nom",
	}}}
	require.NoError(t, m.ManipulateCorpus(g, "", status.StepID{ModuleName: "map"}, nil))

	t1, ok := g.GetNodeIDFromName("doc#t1")
	require.True(t, ok)
	value, found, err := g.GetValueForItem(t1, graph.AnnoKey{Name: "case"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "nom", value)

	// Non-matching tokens are untouched.
	t2, _ := g.GetNodeIDFromName("doc#t2")
	_, found, err = g.GetValueForItem(t2, graph.AnnoKey{Name: "case"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMapReadsRuleFile(t *testing.T) {
	g := documentGraph(t)

	dir := t.TempDir()
	ruleFile := filepath.Join(dir, "rules.toml")
	require.NoError(t, os.WriteFile(ruleFile, []byte(`
[[rules]]
query = "pos=/VERB/"
ns = ""
name = "tense"
value = "past"
`), 0644))

	m := &MapAnnos{RuleFile: "rules.toml"}
	require.NoError(t, m.ManipulateCorpus(g, dir, status.StepID{ModuleName: "map"}, nil))

	t2, _ := g.GetNodeIDFromName("doc#t2")
	value, found, err := g.GetValueForItem(t2, graph.AnnoKey{Name: "tense"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "past", value)
}
