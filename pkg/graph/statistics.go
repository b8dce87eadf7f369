package graph

// GlobalStatistics is an optional summary of the graph used by query
// planners. It is cleared by every ApplyUpdate that changed the graph and
// recomputed on demand for manipulators that declare they need it.
type GlobalStatistics struct {
	// NodeCount is the number of nodes in the graph.
	NodeCount int
	// Components maps every component to its edge statistics.
	Components map[Component]ComponentStatistics
}

// ComponentStatistics summarizes one edge storage.
type ComponentStatistics struct {
	// Edges is the number of edges in the component.
	Edges int
	// SourceNodes is the number of nodes with outgoing edges.
	SourceNodes int
	// MaxFanOut is the largest outgoing degree of any source node.
	MaxFanOut int
}

// GlobalStats returns the current statistics, or nil if they have not been
// computed since the last effective update.
func (g *Graph) GlobalStats() *GlobalStatistics {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats
}

func (g *Graph) setStatistics(stats *GlobalStatistics) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats = stats
}

// CalculateStatistics recomputes the global statistics from the current
// graph content.
func (g *Graph) CalculateStatistics() error {
	nodes, err := g.nodeAnnos.Items()
	if err != nil {
		return err
	}
	stats := &GlobalStatistics{
		NodeCount:  len(nodes),
		Components: make(map[Component]ComponentStatistics),
	}
	for _, c := range g.GetAllComponents(nil, nil) {
		gs := g.GetGraphStorage(c)
		edges, err := gs.NumberOfEdges()
		if err != nil {
			return err
		}
		sources, err := gs.SourceNodes()
		if err != nil {
			return err
		}
		maxFanOut := 0
		for _, source := range sources {
			targets, err := gs.GetOutgoingEdges(source)
			if err != nil {
				return err
			}
			if len(targets) > maxFanOut {
				maxFanOut = len(targets)
			}
		}
		stats.Components[c] = ComponentStatistics{
			Edges:       edges,
			SourceNodes: len(sources),
			MaxFanOut:   maxFanOut,
		}
	}
	g.setStatistics(stats)
	return nil
}
