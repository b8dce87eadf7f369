package graph

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/annatto/pkg/status"
)

// Options configures a new graph.
type Options struct {
	// OnDisk backs the annotation and edge storages by a BadgerDB instance
	// in a temporary directory instead of in-memory maps.
	OnDisk bool

	// Dir is the directory for on-disk storage. A temporary directory is
	// created (and removed on Close) when empty.
	Dir string
}

// Graph is the in-memory annotation graph: the node annotation store, a map
// from component to edge storage, and an optional global statistics summary.
//
// The graph exclusively owns its nodes, annotation stores and edge storages.
// It is created empty and mutated only through ApplyUpdate; manipulators are
// handed a mutable graph by the executor, everything else reads.
type Graph struct {
	mu sync.RWMutex

	nodeAnnos  AnnoStorage[NodeID]
	components map[Component]writableGraphStorage

	// names resolves node_name values to IDs during update application. It
	// mirrors the annis::node_name annotations in both backends.
	names  map[string]NodeID
	nextID NodeID

	stats *GlobalStatistics

	db         *badger.DB
	dir        string
	ownsDir    bool
	nextPrefix uint32
	closed     bool
}

// NewGraph creates an empty graph. The four base components (Ordering,
// PartOf, LeftToken and RightToken in the "annis" layer) always exist.
func NewGraph(opts Options) (*Graph, error) {
	g := &Graph{
		components: make(map[Component]writableGraphStorage),
		names:      make(map[string]NodeID),
		nextID:     1,
	}
	if opts.OnDisk {
		dir := opts.Dir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "annatto-graph-")
			if err != nil {
				return nil, &status.CreateGraphError{Reason: err.Error()}
			}
			dir = tmp
			g.ownsDir = true
		}
		db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
		if err != nil {
			if g.ownsDir {
				os.RemoveAll(dir)
			}
			return nil, &status.CreateGraphError{Reason: err.Error()}
		}
		g.db = db
		g.dir = dir
		g.nodeAnnos = newBadgerAnnoStorage(db, g.allocPrefix(), nodeIDCodec)
	} else {
		g.nodeAnnos = newMemoryAnnoStorage[NodeID]()
	}
	for _, c := range []Component{OrderingComponent, PartOfComponent, LeftTokenComponent, RightTokenComponent} {
		g.components[c] = g.newStorage()
	}
	return g, nil
}

// Close releases the storage backend. For an on-disk graph this closes the
// BadgerDB instance and removes the temporary directory.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.db != nil {
		if err := g.db.Close(); err != nil {
			return err
		}
		if g.ownsDir {
			return os.RemoveAll(g.dir)
		}
	}
	return nil
}

func (g *Graph) allocPrefix() []byte {
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, g.nextPrefix)
	g.nextPrefix++
	return prefix
}

func (g *Graph) newStorage() writableGraphStorage {
	if g.db != nil {
		return newBadgerGraphStorage(g.db, g.allocPrefix())
	}
	return newMemoryGraphStorage()
}

// NodeAnnos exposes the node annotation store.
func (g *Graph) NodeAnnos() AnnoStorage[NodeID] {
	return g.nodeAnnos
}

// GetNodeIDFromName resolves a node name to its ID.
func (g *Graph) GetNodeIDFromName(name string) (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.names[name]
	return id, ok
}

// GetValueForItem returns the value of one node annotation.
func (g *Graph) GetValueForItem(node NodeID, key AnnoKey) (string, bool, error) {
	return g.nodeAnnos.GetValue(node, key)
}

// HasValueForItem reports whether the node carries the annotation.
func (g *Graph) HasValueForItem(node NodeID, key AnnoKey) (bool, error) {
	return g.nodeAnnos.Has(node, key)
}

// GetAnnotationsForItem returns all annotations of one node, sorted by key.
func (g *Graph) GetAnnotationsForItem(node NodeID) ([]Annotation, error) {
	return g.nodeAnnos.GetAnnotations(node)
}

// ExactAnnoSearch finds all node annotations with the given name, optional
// namespace (nil matches any) and value constraint. Result order is
// unspecified; callers that need an order sort the matches by text position.
func (g *Graph) ExactAnnoSearch(ns *string, name string, value ValueSearch) ([]Match, error) {
	refs, err := g.nodeAnnos.Search(ns, name, value)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(refs))
	for i, ref := range refs {
		matches[i] = Match{Node: ref.Item, Key: ref.Key}
	}
	return matches, nil
}

// GetAllComponents lists the components of the graph, optionally restricted
// by type and/or name. The result is sorted by (type, layer, name).
func (g *Graph) GetAllComponents(ctype *ComponentType, name *string) []Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var result []Component
	for c := range g.components {
		if ctype != nil && c.Type != *ctype {
			continue
		}
		if name != nil && c.Name != *name {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		return a.Name < b.Name
	})
	return result
}

// GetGraphStorage returns the edge storage of the component, or nil if the
// component does not exist.
func (g *Graph) GetGraphStorage(c Component) GraphStorage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	gs, ok := g.components[c]
	if !ok {
		return nil
	}
	return gs
}

func (g *Graph) getOrCreateStorage(c Component) writableGraphStorage {
	g.mu.Lock()
	defer g.mu.Unlock()
	gs, ok := g.components[c]
	if !ok {
		gs = g.newStorage()
		g.components[c] = gs
	}
	return gs
}

// EnsureLoaded makes sure all storages are available for querying. Both
// backends keep their storages resident, so this only validates that the
// graph has not been closed. The executor calls it before manipulators that
// require statistics.
func (g *Graph) EnsureLoaded() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrStorageClosed
	}
	return nil
}

// ApplyUpdate replays the update log against the graph, in order, and drains
// the log. The observer (may be nil) receives informational callbacks while
// the log is applied.
//
// Atomicity is best-effort at event granularity: on failure the graph is left
// in the state just before the failing event; no rollback across events is
// performed. If any event actually changed the graph, the global statistics
// are cleared.
func (g *Graph) ApplyUpdate(update *GraphUpdate, observer func(msg string)) error {
	events := update.drain()
	changed := false
	for i, event := range events {
		eventChanged, err := g.applyEvent(event)
		if err != nil {
			if changed {
				g.setStatistics(nil)
			}
			return &status.UpdateGraphError{Reason: err.Error()}
		}
		changed = changed || eventChanged
		if observer != nil && (i+1)%10_000 == 0 {
			observer(fmt.Sprintf("applied %d of %d updates", i+1, len(events)))
		}
	}
	if observer != nil {
		observer(fmt.Sprintf("applied %d updates", len(events)))
	}
	if changed {
		g.setStatistics(nil)
	}
	return nil
}

func (g *Graph) applyEvent(event UpdateEvent) (bool, error) {
	switch e := event.(type) {
	case AddNode:
		return g.addNode(e.NodeName, e.NodeType)
	case DeleteNode:
		return g.deleteNode(e.NodeName)
	case AddNodeLabel:
		node, ok := g.GetNodeIDFromName(e.NodeName)
		if !ok {
			return false, nil
		}
		return g.nodeAnnos.Set(node, Annotation{
			Key:   AnnoKey{Namespace: e.AnnoNs, Name: e.AnnoName},
			Value: e.AnnoValue,
		})
	case DeleteNodeLabel:
		node, ok := g.GetNodeIDFromName(e.NodeName)
		if !ok {
			return false, nil
		}
		return g.nodeAnnos.Remove(node, AnnoKey{Namespace: e.AnnoNs, Name: e.AnnoName})
	case AddEdge:
		edge, err := g.resolveEdge(e.SourceNode, e.TargetNode, true)
		if err != nil || edge == nil {
			return false, err
		}
		gs := g.getOrCreateStorage(Component{Type: e.ComponentType, Layer: e.Layer, Name: e.ComponentName})
		return gs.AddEdge(*edge)
	case DeleteEdge:
		edge, err := g.resolveEdge(e.SourceNode, e.TargetNode, false)
		if err != nil || edge == nil {
			return false, err
		}
		gs, ok := g.lookupStorage(Component{Type: e.ComponentType, Layer: e.Layer, Name: e.ComponentName})
		if !ok {
			return false, nil
		}
		return gs.DeleteEdge(*edge)
	case AddEdgeLabel:
		edge, err := g.resolveEdge(e.SourceNode, e.TargetNode, false)
		if err != nil || edge == nil {
			return false, err
		}
		gs, ok := g.lookupStorage(Component{Type: e.ComponentType, Layer: e.Layer, Name: e.ComponentName})
		if !ok {
			return false, nil
		}
		if connected, err := hasDirectEdge(gs, *edge); err != nil || !connected {
			return false, err
		}
		return gs.EdgeAnnos().Set(*edge, Annotation{
			Key:   AnnoKey{Namespace: e.AnnoNs, Name: e.AnnoName},
			Value: e.AnnoValue,
		})
	case DeleteEdgeLabel:
		edge, err := g.resolveEdge(e.SourceNode, e.TargetNode, false)
		if err != nil || edge == nil {
			return false, err
		}
		gs, ok := g.lookupStorage(Component{Type: e.ComponentType, Layer: e.Layer, Name: e.ComponentName})
		if !ok {
			return false, nil
		}
		return gs.EdgeAnnos().Remove(*edge, AnnoKey{Namespace: e.AnnoNs, Name: e.AnnoName})
	default:
		return false, fmt.Errorf("unknown update event %T", event)
	}
}

func (g *Graph) lookupStorage(c Component) (writableGraphStorage, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	gs, ok := g.components[c]
	return gs, ok
}

func hasDirectEdge(gs GraphStorage, e Edge) (bool, error) {
	targets, err := gs.GetOutgoingEdges(e.Source)
	if err != nil {
		return false, err
	}
	for _, t := range targets {
		if t == e.Target {
			return true, nil
		}
	}
	return false, nil
}

func (g *Graph) addNode(name, nodeType string) (bool, error) {
	g.mu.Lock()
	if _, exists := g.names[name]; exists {
		g.mu.Unlock()
		return false, nil
	}
	id := g.nextID
	g.nextID++
	g.names[name] = id
	g.mu.Unlock()

	if _, err := g.nodeAnnos.Set(id, Annotation{Key: NodeNameKey, Value: name}); err != nil {
		return true, err
	}
	_, err := g.nodeAnnos.Set(id, Annotation{Key: NodeTypeKey, Value: nodeType})
	return true, err
}

func (g *Graph) deleteNode(name string) (bool, error) {
	g.mu.Lock()
	id, ok := g.names[name]
	if !ok {
		g.mu.Unlock()
		return false, nil
	}
	delete(g.names, name)
	storages := make([]writableGraphStorage, 0, len(g.components))
	for _, gs := range g.components {
		storages = append(storages, gs)
	}
	g.mu.Unlock()

	for _, gs := range storages {
		if _, err := gs.DeleteNode(id); err != nil {
			return true, err
		}
	}
	return true, g.nodeAnnos.RemoveItem(id)
}

// resolveEdge maps node names to IDs. With autoCreate, missing endpoints are
// created with node type "node"; without it, a missing endpoint resolves the
// whole edge to nil (the event becomes a no-op).
func (g *Graph) resolveEdge(sourceName, targetName string, autoCreate bool) (*Edge, error) {
	resolve := func(name string) (NodeID, bool, error) {
		if id, ok := g.GetNodeIDFromName(name); ok {
			return id, true, nil
		}
		if !autoCreate {
			return 0, false, nil
		}
		if _, err := g.addNode(name, NodeTypeNode); err != nil {
			return 0, false, err
		}
		id, _ := g.GetNodeIDFromName(name)
		return id, true, nil
	}
	source, ok, err := resolve(sourceName)
	if err != nil || !ok {
		return nil, err
	}
	target, ok, err := resolve(targetName)
	if err != nil || !ok {
		return nil, err
	}
	return &Edge{Source: source, Target: target}, nil
}
