// Package util provides the graph helpers every module depends on:
// token/coverage lookups, corpus-graph traversal and sorting matches by their
// position in the text.
package util

import (
	"strings"

	"github.com/korpling/annatto/pkg/graph"
)

// TokenHelper answers token and coverage questions over one graph. It
// precomputes the list of non-empty Coverage edge storages once, so the hot
// per-node checks do not repeat component lookups.
type TokenHelper struct {
	g        *graph.Graph
	covEdges []graph.GraphStorage
	ordering graph.GraphStorage
	left     graph.GraphStorage
	right    graph.GraphStorage
	partOf   graph.GraphStorage
}

// NewTokenHelper creates a helper bound to the graph.
func NewTokenHelper(g *graph.Graph) (*TokenHelper, error) {
	ctype := graph.Coverage
	var covEdges []graph.GraphStorage
	for _, c := range g.GetAllComponents(&ctype, nil) {
		gs := g.GetGraphStorage(c)
		if gs == nil {
			continue
		}
		edges, err := gs.NumberOfEdges()
		if err != nil {
			return nil, err
		}
		if edges > 0 {
			covEdges = append(covEdges, gs)
		}
	}
	return &TokenHelper{
		g:        g,
		covEdges: covEdges,
		ordering: g.GetGraphStorage(graph.OrderingComponent),
		left:     g.GetGraphStorage(graph.LeftTokenComponent),
		right:    g.GetGraphStorage(graph.RightTokenComponent),
		partOf:   g.GetGraphStorage(graph.PartOfComponent),
	}, nil
}

// CoverageStorages returns the non-empty Coverage edge storages.
func (t *TokenHelper) CoverageStorages() []graph.GraphStorage {
	return t.covEdges
}

// IsToken reports whether the node is a terminal token: it carries annis::tok
// and has no outgoing edge in any non-empty Coverage component.
func (t *TokenHelper) IsToken(node graph.NodeID) (bool, error) {
	hasTok, err := t.g.HasValueForItem(node, graph.TokKey)
	if err != nil || !hasTok {
		return false, err
	}
	hasCoverage, err := t.HasOutgoingCoverageEdges(node)
	return !hasCoverage, err
}

// HasOutgoingCoverageEdges reports whether any coverage storage has an
// outgoing edge from the node.
func (t *TokenHelper) HasOutgoingCoverageEdges(node graph.NodeID) (bool, error) {
	for _, gs := range t.covEdges {
		has, err := gs.HasOutgoingEdges(node)
		if err != nil || has {
			return has, err
		}
	}
	return false, nil
}

// LeftTokenFor returns the leftmost terminal token of the node via the
// LeftToken component. A terminal token is its own left token.
func (t *TokenHelper) LeftTokenFor(node graph.NodeID) (graph.NodeID, bool, error) {
	return t.alignedTokenFor(t.left, node)
}

// RightTokenFor returns the rightmost terminal token of the node via the
// RightToken component. A terminal token is its own right token.
func (t *TokenHelper) RightTokenFor(node graph.NodeID) (graph.NodeID, bool, error) {
	return t.alignedTokenFor(t.right, node)
}

func (t *TokenHelper) alignedTokenFor(gs graph.GraphStorage, node graph.NodeID) (graph.NodeID, bool, error) {
	isToken, err := t.IsToken(node)
	if err != nil {
		return 0, false, err
	}
	if isToken {
		return node, true, nil
	}
	if gs == nil {
		return 0, false, nil
	}
	targets, err := gs.GetOutgoingEdges(node)
	if err != nil {
		return 0, false, err
	}
	if len(targets) == 0 {
		return 0, false, nil
	}
	return targets[0], true, nil
}

// GetOrderedTokens yields the terminal tokens under a corpus or document
// node in Ordering order. With a segmentation name, the tokens of the named
// Ordering component are returned instead of the base tokens.
//
// Passing an empty parent name yields every ordered token of the graph.
func (t *TokenHelper) GetOrderedTokens(parent string, segmentation *string) ([]graph.NodeID, error) {
	ordering := t.ordering
	if segmentation != nil {
		ctype := graph.Ordering
		components := t.g.GetAllComponents(&ctype, segmentation)
		ordering = nil
		for _, c := range components {
			if gs := t.g.GetGraphStorage(c); gs != nil {
				ordering = gs
				break
			}
		}
	}
	if ordering == nil {
		return nil, nil
	}

	var parentID graph.NodeID
	restrict := false
	if parent != "" {
		id, ok := t.g.GetNodeIDFromName(parent)
		if !ok {
			return nil, nil
		}
		parentID = id
		restrict = true
	}

	inParent := func(node graph.NodeID) (bool, error) {
		if !restrict {
			return true, nil
		}
		if t.partOf == nil {
			return false, nil
		}
		return t.partOf.IsConnected(node, parentID, 1, graph.Unbounded)
	}

	// Chains start at ordering roots: members without an ingoing edge.
	sources, err := ordering.SourceNodes()
	if err != nil {
		return nil, err
	}
	var tokens []graph.NodeID
	for _, source := range sources {
		hasIngoing, err := ordering.HasIngoingEdges(source)
		if err != nil {
			return nil, err
		}
		if hasIngoing {
			continue
		}
		current := source
		for {
			ok, err := inParent(current)
			if err != nil {
				return nil, err
			}
			if ok {
				tokens = append(tokens, current)
			}
			next, err := ordering.GetOutgoingEdges(current)
			if err != nil {
				return nil, err
			}
			if len(next) == 0 {
				break
			}
			current = next[0]
		}
	}
	return tokens, nil
}

// SpannedText reconstructs the surface text of the given token sequence from
// the annis::tok values. Whitespace annotations on the tokens are honored;
// tokens without any are joined by a single space.
func (t *TokenHelper) SpannedText(tokens []graph.NodeID) (string, error) {
	whitespaceBefore := graph.AnnoKey{Namespace: graph.AnnisNamespace, Name: "tok-whitespace-before"}
	whitespaceAfter := graph.AnnoKey{Namespace: graph.AnnisNamespace, Name: "tok-whitespace-after"}

	var sb strings.Builder
	prevHadAfter := false
	for i, token := range tokens {
		before, hasBefore, err := t.g.GetValueForItem(token, whitespaceBefore)
		if err != nil {
			return "", err
		}
		value, _, err := t.g.GetValueForItem(token, graph.TokKey)
		if err != nil {
			return "", err
		}
		after, hasAfter, err := t.g.GetValueForItem(token, whitespaceAfter)
		if err != nil {
			return "", err
		}
		if i > 0 && !hasBefore && !prevHadAfter {
			sb.WriteString(" ")
		}
		sb.WriteString(before)
		sb.WriteString(value)
		sb.WriteString(after)
		prevHadAfter = hasAfter
	}
	return sb.String(), nil
}
