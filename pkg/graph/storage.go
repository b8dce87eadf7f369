package graph

import (
	"sort"
	"sync"
)

// Unbounded marks a distance bound as unlimited in reachability queries.
const Unbounded = ^uint64(0)

// GraphStorage is the read interface of one component's edge storage. Each
// storage owns its edges and their annotations; callers obtain a storage from
// the graph and must not use it beyond the graph's lifetime.
type GraphStorage interface {
	// SourceNodes returns every node with at least one outgoing edge,
	// in ascending NodeID order.
	SourceNodes() ([]NodeID, error)

	// GetOutgoingEdges returns the targets of all edges leaving the node,
	// in ascending NodeID order.
	GetOutgoingEdges(source NodeID) ([]NodeID, error)

	// GetIngoingEdges returns the sources of all edges entering the node,
	// in ascending NodeID order.
	GetIngoingEdges(target NodeID) ([]NodeID, error)

	// HasOutgoingEdges reports whether any edge leaves the node.
	HasOutgoingEdges(node NodeID) (bool, error)

	// HasIngoingEdges reports whether any edge enters the node.
	HasIngoingEdges(node NodeID) (bool, error)

	// IsConnected reports whether target is reachable from source on a path
	// whose length lies in [minDistance, maxDistance].
	IsConnected(source, target NodeID, minDistance, maxDistance uint64) (bool, error)

	// FindConnected returns all nodes reachable from source within the
	// distance bounds, in ascending NodeID order.
	FindConnected(source NodeID, minDistance, maxDistance uint64) ([]NodeID, error)

	// FindConnectedInverse returns all nodes from which target is reachable
	// within the distance bounds, in ascending NodeID order.
	FindConnectedInverse(target NodeID, minDistance, maxDistance uint64) ([]NodeID, error)

	// EachDFS walks the storage depth-first from start, visiting every node
	// whose distance lies in the bounds. The walk is cycle-safe: a node is
	// not expanded twice on the same path. Return false from the callback to
	// stop early.
	EachDFS(start NodeID, minDistance, maxDistance uint64, visit func(step DFSStep) bool) error

	// NumberOfEdges returns the edge count of the component.
	NumberOfEdges() (int, error)

	// EdgeAnnos exposes the storage's own edge annotation store.
	EdgeAnnos() AnnoStorage[Edge]
}

// DFSStep is one visited node of a depth-first traversal together with its
// distance from the start node.
type DFSStep struct {
	Node     NodeID
	Distance uint64
}

// writableGraphStorage extends GraphStorage with the mutations the graph
// performs while applying an update log. It is not exposed to modules.
type writableGraphStorage interface {
	GraphStorage

	// AddEdge inserts the edge; re-adding an existing edge is a no-op.
	AddEdge(e Edge) (changed bool, err error)
	// DeleteEdge removes the edge and its annotations.
	DeleteEdge(e Edge) (changed bool, err error)
	// DeleteNode removes every edge incident to the node.
	DeleteNode(node NodeID) (changed bool, err error)
}

// memoryGraphStorage is the map-backed edge storage: forward and inverse
// adjacency maps plus an annotation store keyed by edge.
type memoryGraphStorage struct {
	mu    sync.RWMutex
	out   map[NodeID]map[NodeID]struct{}
	in    map[NodeID]map[NodeID]struct{}
	edges int
	annos AnnoStorage[Edge]
}

func newMemoryGraphStorage() *memoryGraphStorage {
	return &memoryGraphStorage{
		out:   make(map[NodeID]map[NodeID]struct{}),
		in:    make(map[NodeID]map[NodeID]struct{}),
		annos: newMemoryAnnoStorage[Edge](),
	}
}

func (s *memoryGraphStorage) AddEdge(e Edge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.out[e.Source][e.Target]; ok {
		return false, nil
	}
	if s.out[e.Source] == nil {
		s.out[e.Source] = make(map[NodeID]struct{})
	}
	if s.in[e.Target] == nil {
		s.in[e.Target] = make(map[NodeID]struct{})
	}
	s.out[e.Source][e.Target] = struct{}{}
	s.in[e.Target][e.Source] = struct{}{}
	s.edges++
	return true, nil
}

func (s *memoryGraphStorage) DeleteEdge(e Edge) (bool, error) {
	s.mu.Lock()
	if _, ok := s.out[e.Source][e.Target]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.out[e.Source], e.Target)
	if len(s.out[e.Source]) == 0 {
		delete(s.out, e.Source)
	}
	delete(s.in[e.Target], e.Source)
	if len(s.in[e.Target]) == 0 {
		delete(s.in, e.Target)
	}
	s.edges--
	s.mu.Unlock()
	return true, s.annos.RemoveItem(e)
}

func (s *memoryGraphStorage) DeleteNode(node NodeID) (bool, error) {
	s.mu.RLock()
	var incident []Edge
	for target := range s.out[node] {
		incident = append(incident, Edge{Source: node, Target: target})
	}
	for source := range s.in[node] {
		incident = append(incident, Edge{Source: source, Target: node})
	}
	s.mu.RUnlock()
	for _, e := range incident {
		if _, err := s.DeleteEdge(e); err != nil {
			return false, err
		}
	}
	return len(incident) > 0, nil
}

func (s *memoryGraphStorage) SourceNodes() ([]NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]NodeID, 0, len(s.out))
	for source := range s.out {
		result = append(result, source)
	}
	sortNodeIDs(result)
	return result, nil
}

func (s *memoryGraphStorage) GetOutgoingEdges(source NodeID) ([]NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]NodeID, 0, len(s.out[source]))
	for target := range s.out[source] {
		result = append(result, target)
	}
	sortNodeIDs(result)
	return result, nil
}

func (s *memoryGraphStorage) GetIngoingEdges(target NodeID) ([]NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]NodeID, 0, len(s.in[target]))
	for source := range s.in[target] {
		result = append(result, source)
	}
	sortNodeIDs(result)
	return result, nil
}

func (s *memoryGraphStorage) HasOutgoingEdges(node NodeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.out[node]) > 0, nil
}

func (s *memoryGraphStorage) HasIngoingEdges(node NodeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.in[node]) > 0, nil
}

func (s *memoryGraphStorage) IsConnected(source, target NodeID, minDistance, maxDistance uint64) (bool, error) {
	return isConnected(s, source, target, minDistance, maxDistance)
}

func (s *memoryGraphStorage) FindConnected(source NodeID, minDistance, maxDistance uint64) ([]NodeID, error) {
	return findConnected(s.GetOutgoingEdges, source, minDistance, maxDistance)
}

func (s *memoryGraphStorage) FindConnectedInverse(target NodeID, minDistance, maxDistance uint64) ([]NodeID, error) {
	return findConnected(s.GetIngoingEdges, target, minDistance, maxDistance)
}

func (s *memoryGraphStorage) EachDFS(start NodeID, minDistance, maxDistance uint64, visit func(DFSStep) bool) error {
	return eachDFS(s.GetOutgoingEdges, start, minDistance, maxDistance, visit)
}

func (s *memoryGraphStorage) NumberOfEdges() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edges, nil
}

func (s *memoryGraphStorage) EdgeAnnos() AnnoStorage[Edge] { return s.annos }

// =============================================================================
// Traversal, shared between the memory and the badger backend
// =============================================================================

type neighborFunc func(NodeID) ([]NodeID, error)

// findConnected is a breadth-first closure with distance bounds. Already
// visited nodes are not expanded again, which makes the walk safe on cyclic
// input.
func findConnected(neighbors neighborFunc, start NodeID, minDistance, maxDistance uint64) ([]NodeID, error) {
	type queued struct {
		node     NodeID
		distance uint64
	}
	visited := map[NodeID]struct{}{start: {}}
	queue := []queued{{node: start, distance: 0}}
	var result []NodeID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.distance >= minDistance && current.distance <= maxDistance {
			result = append(result, current.node)
		}
		if current.distance >= maxDistance {
			continue
		}
		next, err := neighbors(current.node)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			if _, ok := visited[n]; ok {
				continue
			}
			visited[n] = struct{}{}
			queue = append(queue, queued{node: n, distance: current.distance + 1})
		}
	}
	sortNodeIDs(result)
	return result, nil
}

func isConnected(gs GraphStorage, source, target NodeID, minDistance, maxDistance uint64) (bool, error) {
	found := false
	err := eachDFS(gs.GetOutgoingEdges, source, minDistance, maxDistance, func(step DFSStep) bool {
		if step.Node == target {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// eachDFS is an iterative depth-first walk with distance bounds. A node is
// not expanded again while it is on the current path, so cycles terminate.
func eachDFS(neighbors neighborFunc, start NodeID, minDistance, maxDistance uint64, visit func(DFSStep) bool) error {
	type frame struct {
		node     NodeID
		distance uint64
	}
	var path []NodeID
	onPath := make(map[NodeID]struct{})
	stack := []frame{{node: start, distance: 0}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for uint64(len(path)) > current.distance {
			delete(onPath, path[len(path)-1])
			path = path[:len(path)-1]
		}
		path = append(path, current.node)
		onPath[current.node] = struct{}{}
		if current.distance >= minDistance && current.distance <= maxDistance {
			if !visit(DFSStep{Node: current.node, Distance: current.distance}) {
				return nil
			}
		}
		if current.distance >= maxDistance {
			continue
		}
		next, err := neighbors(current.node)
		if err != nil {
			return err
		}
		// Push in reverse so the smallest target is expanded first.
		for i := len(next) - 1; i >= 0; i-- {
			n := next[i]
			if _, ok := onPath[n]; ok {
				continue
			}
			stack = append(stack, frame{node: n, distance: current.distance + 1})
		}
	}
	return nil
}

func sortNodeIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
