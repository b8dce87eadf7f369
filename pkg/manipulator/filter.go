package manipulator

import (
	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/query"
	"github.com/korpling/annatto/pkg/status"
	"github.com/korpling/annatto/pkg/util"
)

// FilterNodes is a positive filter: all nodes that neither match the query
// nor are terminal tokens are deleted. In inverse mode, the matching nodes
// (except terminal tokens) are deleted instead. Only nodes of node type
// "node" are affected; corpus structure and datasources are preserved.
type FilterNodes struct {
	// Query identifies the relevant nodes.
	Query string `toml:"query" doc:"The query to use to identify all relevant nodes."`
	// Inverse deletes the matching nodes instead of keeping them.
	Inverse bool `toml:"inverse" doc:"Delete the matching nodes instead of keeping them."`
}

// ManipulateCorpus applies the filter through a delete-only update log.
func (f *FilterNodes) ManipulateCorpus(g *graph.Graph, _ string, stepID status.StepID, sender status.Sender) error {
	q, err := query.Parse(f.Query)
	if err != nil {
		return err
	}
	matches, err := q.Find(g)
	if err != nil {
		return err
	}
	matching := make(map[graph.NodeID]struct{}, len(matches))
	for _, m := range matches {
		matching[m.Node] = struct{}{}
	}

	// Terminal tokens stay regardless of direction, so the timeline of every
	// datasource survives the filter.
	tokens, err := util.NewTokenHelper(g)
	if err != nil {
		return err
	}
	terminals := make(map[graph.NodeID]struct{})
	ordered, err := tokens.GetOrderedTokens("", nil)
	if err != nil {
		return err
	}
	for _, token := range ordered {
		terminals[token] = struct{}{}
	}

	candidates, err := g.NodeAnnos().Items()
	if err != nil {
		return err
	}
	progress := status.NewProgressReporter(sender, stepID, uint64(len(candidates)))
	update := graph.NewGraphUpdate()
	for _, node := range candidates {
		progress.Worked(1)
		nodeType, ok, err := g.GetValueForItem(node, graph.NodeTypeKey)
		if err != nil {
			return err
		}
		if !ok || nodeType != graph.NodeTypeNode {
			continue
		}
		if _, isTerminal := terminals[node]; isTerminal {
			continue
		}
		if isToken, err := tokens.IsToken(node); err != nil {
			return err
		} else if isToken {
			continue
		}
		_, isMatch := matching[node]
		if isMatch == f.Inverse {
			name, _, err := g.GetValueForItem(node, graph.NodeNameKey)
			if err != nil {
				return err
			}
			update.Add(graph.DeleteNode{NodeName: name})
		}
	}
	return g.ApplyUpdate(update, nil)
}

// RequiresStatistics is false.
func (*FilterNodes) RequiresStatistics() bool { return false }
