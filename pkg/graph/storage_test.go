package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainStorage builds 1 -> 2 -> 3 -> 4 plus a side edge 2 -> 5.
func chainStorage(t *testing.T) writableGraphStorage {
	t.Helper()
	gs := newMemoryGraphStorage()
	for _, e := range []Edge{
		{Source: 1, Target: 2},
		{Source: 2, Target: 3},
		{Source: 3, Target: 4},
		{Source: 2, Target: 5},
	} {
		changed, err := gs.AddEdge(e)
		require.NoError(t, err)
		require.True(t, changed)
	}
	return gs
}

func TestFindConnected(t *testing.T) {
	gs := chainStorage(t)

	reachable, err := gs.FindConnected(1, 1, Unbounded)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{2, 3, 4, 5}, reachable)

	reachable, err = gs.FindConnected(1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{1, 2}, reachable)

	reachable, err = gs.FindConnected(1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{3, 5}, reachable)
}

func TestFindConnectedInverse(t *testing.T) {
	gs := chainStorage(t)
	sources, err := gs.FindConnectedInverse(4, 1, Unbounded)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{1, 2, 3}, sources)
}

func TestIsConnected(t *testing.T) {
	gs := chainStorage(t)

	for _, tc := range []struct {
		source, target NodeID
		min, max       uint64
		want           bool
	}{
		{source: 1, target: 4, min: 1, max: Unbounded, want: true},
		{source: 1, target: 4, min: 1, max: 2, want: false},
		{source: 1, target: 4, min: 3, max: 3, want: true},
		{source: 4, target: 1, min: 1, max: Unbounded, want: false},
		{source: 1, target: 5, min: 2, max: 2, want: true},
	} {
		connected, err := gs.IsConnected(tc.source, tc.target, tc.min, tc.max)
		require.NoError(t, err)
		assert.Equal(t, tc.want, connected, "%d -> %d within [%d, %d]", tc.source, tc.target, tc.min, tc.max)
	}
}

func TestDFSIsCycleSafe(t *testing.T) {
	gs := newMemoryGraphStorage()
	for _, e := range []Edge{
		{Source: 1, Target: 2},
		{Source: 2, Target: 3},
		{Source: 3, Target: 1}, // cycle
	} {
		_, err := gs.AddEdge(e)
		require.NoError(t, err)
	}
	var visited []NodeID
	err := gs.EachDFS(1, 0, Unbounded, func(step DFSStep) bool {
		visited = append(visited, step.Node)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []NodeID{1, 2, 3}, visited)
}

func TestDeleteEdgeRemovesAnnotations(t *testing.T) {
	gs := newMemoryGraphStorage()
	e := Edge{Source: 1, Target: 2}
	_, err := gs.AddEdge(e)
	require.NoError(t, err)
	_, err = gs.EdgeAnnos().Set(e, Annotation{Key: AnnoKey{Name: "func"}, Value: "subj"})
	require.NoError(t, err)

	changed, err := gs.DeleteEdge(e)
	require.NoError(t, err)
	require.True(t, changed)

	_, ok, err := gs.EdgeAnnos().GetValue(e, AnnoKey{Name: "func"})
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op.
	changed, err = gs.DeleteEdge(e)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAnnoStorageSearch(t *testing.T) {
	s := newMemoryAnnoStorage[NodeID]()
	set := func(item NodeID, ns, name, value string) {
		_, err := s.Set(item, Annotation{Key: AnnoKey{Namespace: ns, Name: name}, Value: value})
		require.NoError(t, err)
	}
	set(1, "", "pos", "NOUN")
	set(2, "", "pos", "VERB")
	set(3, "other", "pos", "NOUN")
	set(4, "", "lemma", "tree")

	t.Run("any namespace", func(t *testing.T) {
		refs, err := s.Search(nil, "pos", AnyValue())
		require.NoError(t, err)
		assert.Len(t, refs, 3)
	})

	t.Run("restricted namespace", func(t *testing.T) {
		ns := "other"
		refs, err := s.Search(&ns, "pos", AnyValue())
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, NodeID(3), refs[0].Item)
	})

	t.Run("exact value", func(t *testing.T) {
		refs, err := s.Search(nil, "pos", ExactValue("NOUN"))
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})

	t.Run("without annotation", func(t *testing.T) {
		refs, err := s.Search(nil, "pos", NoValue())
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, NodeID(4), refs[0].Item)
	})
}

func TestAnnoStorageOverwrite(t *testing.T) {
	s := newMemoryAnnoStorage[NodeID]()
	key := AnnoKey{Name: "pos"}

	changed, err := s.Set(1, Annotation{Key: key, Value: "NOUN"})
	require.NoError(t, err)
	assert.True(t, changed)

	// Same value again reports no change.
	changed, err = s.Set(1, Annotation{Key: key, Value: "NOUN"})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.Set(1, Annotation{Key: key, Value: "VERB"})
	require.NoError(t, err)
	assert.True(t, changed)

	value, ok, err := s.GetValue(1, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "VERB", value)
}
