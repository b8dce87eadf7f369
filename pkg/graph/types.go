// Package graph provides the in-memory annotation graph that every module of
// the conversion pipeline reads or writes.
//
// The graph is a labeled multigraph: nodes carry string annotations addressed
// by qualified keys, and edges live in typed, named components, each backed
// by its own edge storage with its own edge annotation store. Importers never
// touch the graph directly; they produce an ordered update log (GraphUpdate)
// which the executor applies through ApplyUpdate. Manipulators query and
// mutate the graph through the same API.
//
// Storage backends:
//   - In-memory maps (fast, bounded by RAM)
//   - BadgerDB on disk (larger than RAM corpora)
//
// The backend is selected when the graph is created and is not observable in
// behavior, only in memory usage and latency.
//
// Example:
//
//	g, err := graph.NewGraph(graph.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Close()
//
//	u := graph.NewGraphUpdate()
//	u.Add(graph.AddNode{NodeName: "corpus/doc#t1", NodeType: "node"})
//	u.Add(graph.AddNodeLabel{
//		NodeName: "corpus/doc#t1",
//		AnnoNs:   graph.AnnisNamespace, AnnoName: "tok", AnnoValue: "I",
//	})
//	if err := g.ApplyUpdate(u, nil); err != nil {
//		log.Fatal(err)
//	}
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	ErrStorageClosed   = errors.New("storage closed")
	ErrUnknownComptype = errors.New("unknown component type")
)

// AnnisNamespace is the namespace reserved for the core data model.
const AnnisNamespace = "annis"

// NodeID is a dense 64-bit identifier for graph nodes, assigned by the graph
// on insertion and stable for the graph's lifetime.
type NodeID uint64

// AnnoKey is the fully qualified name of an annotation: a (namespace, name)
// pair of short UTF-8 strings. Both parts are case-sensitive, the namespace
// may be empty.
type AnnoKey struct {
	Namespace string
	Name      string
}

// String renders the qualified form "ns::name", or just "name" for an empty
// namespace. This is the form accepted in human-authored configuration.
func (k AnnoKey) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "::" + k.Name
}

// Compare orders keys by name first, then namespace.
func (k AnnoKey) Compare(other AnnoKey) int {
	if c := strings.Compare(k.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(k.Namespace, other.Namespace)
}

// ParseAnnoKey parses the qualified string form: "ns::name" yields (ns, name)
// and a bare "name" yields ("", name).
func ParseAnnoKey(s string) AnnoKey {
	if ns, name, ok := strings.Cut(s, "::"); ok {
		return AnnoKey{Namespace: ns, Name: name}
	}
	return AnnoKey{Name: s}
}

// UnmarshalTOML accepts either the qualified string form "ns::name" or a
// table form { ns = "...", name = "..." }.
func (k *AnnoKey) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case string:
		*k = ParseAnnoKey(v)
		return nil
	case map[string]any:
		ns, _ := v["ns"].(string)
		name, ok := v["name"].(string)
		if !ok {
			return fmt.Errorf("annotation key table needs a 'name' field")
		}
		*k = AnnoKey{Namespace: ns, Name: name}
		return nil
	default:
		return fmt.Errorf("annotation key must be a string or a table, got %T", value)
	}
}

// Annotation is a key/value label on a node or an edge.
type Annotation struct {
	Key   AnnoKey
	Value string
}

// Mandatory annotation keys of the data model.
var (
	// NodeNameKey holds the globally unique, slash-separated hierarchical
	// name of every node. It is the cross-reference between update events.
	NodeNameKey = AnnoKey{Namespace: AnnisNamespace, Name: "node_name"}
	// NodeTypeKey holds the node type: "corpus", "datasource", "node" or
	// "file".
	NodeTypeKey = AnnoKey{Namespace: AnnisNamespace, Name: "node_type"}
	// TokKey holds the surface string of a token.
	TokKey = AnnoKey{Namespace: AnnisNamespace, Name: "tok"}
	// DocKey holds the unqualified document name on document corpus nodes.
	DocKey = AnnoKey{Namespace: AnnisNamespace, Name: "doc"}
	// FileKey points from a file node to the file it represents.
	FileKey = AnnoKey{Namespace: AnnisNamespace, Name: "file"}
)

// Node type values.
const (
	NodeTypeCorpus     = "corpus"
	NodeTypeDatasource = "datasource"
	NodeTypeNode       = "node"
	NodeTypeFile       = "file"
)

// ComponentType classifies the edge relation of a component.
type ComponentType int

// The closed set of component types.
const (
	Coverage ComponentType = iota
	Dominance
	Pointing
	Ordering
	LeftToken
	RightToken
	PartOf
)

var componentTypeNames = [...]string{
	Coverage:   "Coverage",
	Dominance:  "Dominance",
	Pointing:   "Pointing",
	Ordering:   "Ordering",
	LeftToken:  "LeftToken",
	RightToken: "RightToken",
	PartOf:     "PartOf",
}

// String returns the canonical name of the component type.
func (t ComponentType) String() string {
	if t < 0 || int(t) >= len(componentTypeNames) {
		return fmt.Sprintf("ComponentType(%d)", int(t))
	}
	return componentTypeNames[t]
}

// ParseComponentType parses the canonical name of a component type.
func ParseComponentType(s string) (ComponentType, error) {
	for i, name := range componentTypeNames {
		if name == s {
			return ComponentType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownComptype, s)
}

// Component identifies one edge relation as a (type, layer, name) triple.
// There is at most one edge storage per component.
type Component struct {
	Type  ComponentType
	Layer string
	Name  string
}

// String renders the component as "Type/layer/name".
func (c Component) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Type, c.Layer, c.Name)
}

// UnmarshalTOML accepts the table form { ctype = "...", layer = "...",
// name = "..." }; "type" is accepted as an alias of "ctype".
func (c *Component) UnmarshalTOML(value any) error {
	table, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("component must be a table, got %T", value)
	}
	ctypeRaw, ok := table["ctype"].(string)
	if !ok {
		ctypeRaw, ok = table["type"].(string)
	}
	if !ok {
		return fmt.Errorf("component table needs a 'ctype' field")
	}
	ctype, err := ParseComponentType(ctypeRaw)
	if err != nil {
		return err
	}
	layer, _ := table["layer"].(string)
	name, _ := table["name"].(string)
	*c = Component{Type: ctype, Layer: layer, Name: name}
	return nil
}

// The base components that always exist logically.
var (
	OrderingComponent   = Component{Type: Ordering, Layer: AnnisNamespace}
	PartOfComponent     = Component{Type: PartOf, Layer: AnnisNamespace}
	LeftTokenComponent  = Component{Type: LeftToken, Layer: AnnisNamespace}
	RightTokenComponent = Component{Type: RightToken, Layer: AnnisNamespace}
)

// Edge is an ordered pair of nodes inside one component.
type Edge struct {
	Source NodeID
	Target NodeID
}

// Inverse returns the edge with source and target swapped.
func (e Edge) Inverse() Edge {
	return Edge{Source: e.Target, Target: e.Source}
}

// Match is one hit of an annotation search: the node and the key of the
// matched annotation.
type Match struct {
	Node NodeID
	Key  AnnoKey
}

// ValueSearch restricts an annotation search by value.
type ValueSearch struct {
	kind  valueSearchKind
	value string
}

type valueSearchKind int

const (
	valueAny valueSearchKind = iota
	valueExact
	valueNone
)

// AnyValue matches every value of the searched annotation.
func AnyValue() ValueSearch { return ValueSearch{kind: valueAny} }

// ExactValue matches only annotations with exactly this value.
func ExactValue(v string) ValueSearch { return ValueSearch{kind: valueExact, value: v} }

// NoValue matches items that do not carry the searched annotation at all.
func NoValue() ValueSearch { return ValueSearch{kind: valueNone} }
