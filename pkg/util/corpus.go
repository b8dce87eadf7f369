package util

import (
	"sort"

	"github.com/korpling/annatto/pkg/graph"
)

// CorpusGraphHelper answers questions about the corpus skeleton spanned by
// the PartOf component: which nodes are root corpora and which are documents.
type CorpusGraphHelper struct {
	g      *graph.Graph
	partOf graph.GraphStorage
}

// NewCorpusGraphHelper creates a helper bound to the graph.
func NewCorpusGraphHelper(g *graph.Graph) *CorpusGraphHelper {
	return &CorpusGraphHelper{
		g:      g,
		partOf: g.GetGraphStorage(graph.PartOfComponent),
	}
}

// RootCorpusNodes returns all corpus nodes without an outgoing PartOf edge,
// in ascending NodeID order.
func (h *CorpusGraphHelper) RootCorpusNodes() ([]graph.NodeID, error) {
	corpusNodes, err := h.corpusNodes()
	if err != nil {
		return nil, err
	}
	var roots []graph.NodeID
	for _, node := range corpusNodes {
		hasParent, err := h.partOf.HasOutgoingEdges(node)
		if err != nil {
			return nil, err
		}
		if !hasParent {
			roots = append(roots, node)
		}
	}
	return roots, nil
}

// DocumentNodes returns all document nodes: corpus nodes that are leaves of
// the PartOf forest, i. e. have no child that is itself a corpus node.
func (h *CorpusGraphHelper) DocumentNodes() ([]graph.NodeID, error) {
	corpusNodes, err := h.corpusNodes()
	if err != nil {
		return nil, err
	}
	var documents []graph.NodeID
	for _, node := range corpusNodes {
		isDoc, err := h.isDocumentAmong(node)
		if err != nil {
			return nil, err
		}
		if isDoc {
			documents = append(documents, node)
		}
	}
	return documents, nil
}

// IsDocument reports whether the node is a document.
func (h *CorpusGraphHelper) IsDocument(node graph.NodeID) (bool, error) {
	nodeType, ok, err := h.g.GetValueForItem(node, graph.NodeTypeKey)
	if err != nil || !ok || nodeType != graph.NodeTypeCorpus {
		return false, err
	}
	return h.isDocumentAmong(node)
}

func (h *CorpusGraphHelper) corpusNodes() ([]graph.NodeID, error) {
	ns := graph.AnnisNamespace
	matches, err := h.g.ExactAnnoSearch(&ns, graph.NodeTypeKey.Name, graph.ExactValue(graph.NodeTypeCorpus))
	if err != nil {
		return nil, err
	}
	nodes := make([]graph.NodeID, len(matches))
	for i, m := range matches {
		nodes[i] = m.Node
	}
	sortNodeIDs(nodes)
	return nodes, nil
}

// isDocumentAmong checks that no PartOf child of the node is a corpus node.
func (h *CorpusGraphHelper) isDocumentAmong(node graph.NodeID) (bool, error) {
	children, err := h.partOf.GetIngoingEdges(node)
	if err != nil {
		return false, err
	}
	for _, child := range children {
		childType, ok, err := h.g.GetValueForItem(child, graph.NodeTypeKey)
		if err != nil {
			return false, err
		}
		if ok && childType == graph.NodeTypeCorpus {
			return false, nil
		}
	}
	return true, nil
}

func sortNodeIDs(ids []graph.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
