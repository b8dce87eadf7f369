package util

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/korpling/annatto/pkg/graph"
)

const sortCacheSize = 1000

// SortCache orders matches by their position in the text. The comparison
// needs the node name, the left token and Ordering reachability of every
// match, so the cache keeps small per-sort LRU caches for all three lookups.
//
// A SortCache is bound to one graph state; create a fresh one per sort.
type SortCache struct {
	nodeName    *lru.Cache[graph.NodeID, string]
	leftToken   *lru.Cache[graph.NodeID, leftTokenEntry]
	isConnected *lru.Cache[graph.Edge, bool]
	gsOrder     graph.GraphStorage
	g           *graph.Graph
	tokens      *TokenHelper
}

type leftTokenEntry struct {
	token graph.NodeID
	ok    bool
}

// NewSortCache creates a cache over the base Ordering storage of the graph.
func NewSortCache(g *graph.Graph, tokens *TokenHelper) *SortCache {
	nodeName, _ := lru.New[graph.NodeID, string](sortCacheSize)
	leftToken, _ := lru.New[graph.NodeID, leftTokenEntry](sortCacheSize)
	isConnected, _ := lru.New[graph.Edge, bool](sortCacheSize)
	return &SortCache{
		nodeName:    nodeName,
		leftToken:   leftToken,
		isConnected: isConnected,
		gsOrder:     g.GetGraphStorage(graph.OrderingComponent),
		g:           g,
		tokens:      tokens,
	}
}

// CompareMatchByTextPos orders two matches:
//
//  1. Matches on the same node compare by annotation key.
//  2. Otherwise by document path (element-wise on the slash-separated node
//     name; a path that is a prefix of the other is smaller).
//  3. Otherwise by token order: reachability of the left tokens in the base
//     Ordering storage.
//  4. Otherwise by the node name fragment after "#".
//  5. Otherwise by NodeID.
func (c *SortCache) CompareMatchByTextPos(m1, m2 graph.Match) (int, error) {
	if m1.Node == m2.Node {
		return m1.Key.Compare(m2.Key), nil
	}

	name1, err := c.nodeNameFor(m1.Node)
	if err != nil {
		return 0, err
	}
	name2, err := c.nodeNameFor(m2.Node)
	if err != nil {
		return 0, err
	}

	if name1 != "" && name2 != "" {
		path1, fragment1 := splitPathAndNodeName(name1)
		path2, fragment2 := splitPathAndNodeName(name2)

		if cmp := compareDocumentPath(path1, path2); cmp != 0 {
			return cmp, nil
		}

		left1, ok1, err := c.leftTokenFor(m1.Node)
		if err != nil {
			return 0, err
		}
		left2, ok2, err := c.leftTokenFor(m2.Node)
		if err != nil {
			return 0, err
		}
		if ok1 && ok2 {
			connected, err := c.connected(left1, left2)
			if err != nil {
				return 0, err
			}
			if connected {
				return -1, nil
			}
			connected, err = c.connected(left2, left1)
			if err != nil {
				return 0, err
			}
			if connected {
				return 1, nil
			}
		}

		if cmp := strings.Compare(fragment1, fragment2); cmp != 0 {
			return cmp, nil
		}
	}

	switch {
	case m1.Node < m2.Node:
		return -1, nil
	case m1.Node > m2.Node:
		return 1, nil
	default:
		return 0, nil
	}
}

// CompareMatchGroupByTextPos orders two match groups element-wise. When one
// group is a proper prefix of the other, the longer group sorts first: the
// more specific match wins, a remnant of the SQL-based system where unfilled
// match positions were NULL and sorted last.
func (c *SortCache) CompareMatchGroupByTextPos(g1, g2 []graph.Match) (int, error) {
	n := len(g1)
	if len(g2) < n {
		n = len(g2)
	}
	for i := 0; i < n; i++ {
		cmp, err := c.CompareMatchByTextPos(g1[i], g2[i])
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	switch {
	case len(g2) < len(g1):
		return -1, nil
	case len(g2) > len(g1):
		return 1, nil
	default:
		return 0, nil
	}
}

// SortMatches sorts the matches in place by text position.
func (c *SortCache) SortMatches(matches []graph.Match) error {
	var sortErr error
	sort.SliceStable(matches, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := c.CompareMatchByTextPos(matches[i], matches[j])
		if err != nil {
			sortErr = err
			return false
		}
		return cmp < 0
	})
	return sortErr
}

func (c *SortCache) nodeNameFor(node graph.NodeID) (string, error) {
	if name, ok := c.nodeName.Get(node); ok {
		return name, nil
	}
	name, _, err := c.g.GetValueForItem(node, graph.NodeNameKey)
	if err != nil {
		return "", err
	}
	c.nodeName.Add(node, name)
	return name, nil
}

func (c *SortCache) leftTokenFor(node graph.NodeID) (graph.NodeID, bool, error) {
	if entry, ok := c.leftToken.Get(node); ok {
		return entry.token, entry.ok, nil
	}
	token, ok, err := c.tokens.LeftTokenFor(node)
	if err != nil {
		return 0, false, err
	}
	c.leftToken.Add(node, leftTokenEntry{token: token, ok: ok})
	return token, ok, nil
}

func (c *SortCache) connected(from, to graph.NodeID) (bool, error) {
	key := graph.Edge{Source: from, Target: to}
	if connected, ok := c.isConnected.Get(key); ok {
		return connected, nil
	}
	if c.gsOrder == nil {
		return false, nil
	}
	connected, err := c.gsOrder.IsConnected(from, to, 1, graph.Unbounded)
	if err != nil {
		return false, err
	}
	c.isConnected.Add(key, connected)
	return connected, nil
}

// splitPathAndNodeName splits a node name into its document path and the
// fragment after "#".
func splitPathAndNodeName(fullNodeName string) (string, string) {
	if idx := strings.LastIndex(fullNodeName, "#"); idx >= 0 {
		return fullNodeName[:idx], fullNodeName[idx+1:]
	}
	return fullNodeName, ""
}

// compareDocumentPath compares two slash-separated paths element-wise; a
// path that is a prefix of the other is smaller.
func compareDocumentPath(p1, p2 string) int {
	parts1 := splitPath(p1)
	parts2 := splitPath(p2)
	n := len(parts1)
	if len(parts2) < n {
		n = len(parts2)
	}
	for i := 0; i < n; i++ {
		if cmp := strings.Compare(parts1[i], parts2[i]); cmp != 0 {
			return cmp
		}
	}
	switch {
	case len(parts1) < len(parts2):
		return -1
	case len(parts1) > len(parts2):
		return 1
	default:
		return 0
	}
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
