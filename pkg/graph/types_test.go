package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnoKey(t *testing.T) {
	assert.Equal(t, AnnoKey{Namespace: "salt", Name: "lemma"}, ParseAnnoKey("salt::lemma"))
	assert.Equal(t, AnnoKey{Name: "pos"}, ParseAnnoKey("pos"))
	assert.Equal(t, "salt::lemma", AnnoKey{Namespace: "salt", Name: "lemma"}.String())
	assert.Equal(t, "pos", AnnoKey{Name: "pos"}.String())
}

func TestAnnoKeyUnmarshalTOML(t *testing.T) {
	var k AnnoKey
	require.NoError(t, k.UnmarshalTOML("annis::doc"))
	assert.Equal(t, DocKey, k)

	require.NoError(t, k.UnmarshalTOML(map[string]any{"ns": "annis", "name": "tok"}))
	assert.Equal(t, TokKey, k)

	assert.Error(t, k.UnmarshalTOML(map[string]any{"ns": "annis"}))
	assert.Error(t, k.UnmarshalTOML(42))
}

func TestComponentTypeRoundTrip(t *testing.T) {
	for _, ctype := range []ComponentType{Coverage, Dominance, Pointing, Ordering, LeftToken, RightToken, PartOf} {
		parsed, err := ParseComponentType(ctype.String())
		require.NoError(t, err)
		assert.Equal(t, ctype, parsed)
	}
	_, err := ParseComponentType("NotAType")
	assert.ErrorIs(t, err, ErrUnknownComptype)
}

func TestComponentUnmarshalTOML(t *testing.T) {
	var c Component
	require.NoError(t, c.UnmarshalTOML(map[string]any{"ctype": "Pointing", "layer": "dep", "name": "deprel"}))
	assert.Equal(t, Component{Type: Pointing, Layer: "dep", Name: "deprel"}, c)

	// "type" is an alias of "ctype".
	require.NoError(t, c.UnmarshalTOML(map[string]any{"type": "Dominance"}))
	assert.Equal(t, Component{Type: Dominance}, c)

	assert.Error(t, c.UnmarshalTOML(map[string]any{"layer": "dep"}))
}
