package graph

// A GraphUpdate is an append-only, ordered sequence of high-level mutation
// events. It is the sole channel by which importers mutate the graph: an
// importer produces a log, the executor merges the logs of all importers in
// listing order and replays them against a fresh graph.
//
// Events reference nodes by their name, not by NodeID; names are resolved
// when the log is applied. This keeps logs composable across importers that
// have never seen each other's node IDs.
//
// A log exclusively owns its event sequence until it is applied; applying
// drains the log.
//
// ELI12:
//
// Think of a GraphUpdate like a shopping list for the graph. Every importer
// writes its own list ("add this node, label it, connect these two") without
// touching the shelves. At checkout, the lists are stapled together in a
// fixed order and worked through item by item. Two importers can write their
// lists at the same time without stepping on each other, because only the
// checkout touches the shelves.
type GraphUpdate struct {
	events []UpdateEvent
}

// NewGraphUpdate creates an empty update log.
func NewGraphUpdate() *GraphUpdate {
	return &GraphUpdate{}
}

// Add appends one event to the log.
func (u *GraphUpdate) Add(event UpdateEvent) {
	u.events = append(u.events, event)
}

// Len returns the number of pending events.
func (u *GraphUpdate) Len() int {
	return len(u.events)
}

// Append moves all events of other to the end of this log, draining other.
// Concatenation in importer listing order is the only inter-importer
// coordination the pipeline performs.
func (u *GraphUpdate) Append(other *GraphUpdate) {
	u.events = append(u.events, other.events...)
	other.events = nil
}

// drain hands the event sequence to the graph and empties the log.
func (u *GraphUpdate) drain() []UpdateEvent {
	events := u.events
	u.events = nil
	return events
}

// UpdateEvent is one mutation of the annotation graph. The set of events is
// closed.
type UpdateEvent interface {
	isUpdateEvent()
}

// AddNode creates a node. Adding a name that already exists is a no-op.
type AddNode struct {
	NodeName string
	NodeType string
}

// DeleteNode removes a node, all its annotations and all edges incident to
// it, in every component. Deleting a missing node is a no-op.
type DeleteNode struct {
	NodeName string
}

// AddNodeLabel inserts or overwrites one node annotation.
type AddNodeLabel struct {
	NodeName  string
	AnnoNs    string
	AnnoName  string
	AnnoValue string
}

// DeleteNodeLabel removes one node annotation.
type DeleteNodeLabel struct {
	NodeName string
	AnnoNs   string
	AnnoName string
}

// AddEdge creates an edge in the given component. Endpoint nodes that do not
// exist yet are auto-created with node type "node", so tolerant importer
// output is accepted.
type AddEdge struct {
	SourceNode    string
	TargetNode    string
	Layer         string
	ComponentType ComponentType
	ComponentName string
}

// DeleteEdge removes an edge and its annotations from the given component.
type DeleteEdge struct {
	SourceNode    string
	TargetNode    string
	Layer         string
	ComponentType ComponentType
	ComponentName string
}

// AddEdgeLabel inserts or overwrites one edge annotation. The edge must
// already exist; labeling a missing edge is a no-op.
type AddEdgeLabel struct {
	SourceNode    string
	TargetNode    string
	Layer         string
	ComponentType ComponentType
	ComponentName string
	AnnoNs        string
	AnnoName      string
	AnnoValue     string
}

// DeleteEdgeLabel removes one edge annotation.
type DeleteEdgeLabel struct {
	SourceNode    string
	TargetNode    string
	Layer         string
	ComponentType ComponentType
	ComponentName string
	AnnoNs        string
	AnnoName      string
}

func (AddNode) isUpdateEvent()         {}
func (DeleteNode) isUpdateEvent()      {}
func (AddNodeLabel) isUpdateEvent()    {}
func (DeleteNodeLabel) isUpdateEvent() {}
func (AddEdge) isUpdateEvent()         {}
func (DeleteEdge) isUpdateEvent()      {}
func (AddEdgeLabel) isUpdateEvent()    {}
func (DeleteEdgeLabel) isUpdateEvent() {}
