// Package query evaluates the small annotation-query subset used by the
// check, filter and map graph operations.
//
// A query has the form
//
//	[ns::]name            every node carrying the annotation
//	[ns::]name=/regex/    nodes whose annotation value matches the
//	                      anchored regular expression
//
// The bare name "tok" refers to annis::tok, mirroring the token shorthand of
// the full corpus query language. Everything beyond this subset is the
// business of an external query engine. Parse rejects it with an error, which
// the graph operations report when they run; workflow parsing and validation
// do not parse queries.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/korpling/annatto/pkg/graph"
)

// Query is one parsed annotation query.
type Query struct {
	// Key is the searched annotation key. An empty namespace matches any
	// namespace unless the query named one explicitly.
	Key graph.AnnoKey
	// nsExplicit records whether the query carried a namespace.
	nsExplicit bool
	// Re is the anchored value pattern, nil when the query only tests for
	// the existence of the annotation.
	Re *regexp.Regexp
}

// Parse parses a query string.
func Parse(s string) (*Query, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty query")
	}
	keyPart := s
	var pattern string
	hasPattern := false
	if idx := strings.Index(s, "="); idx >= 0 {
		keyPart = strings.TrimSpace(s[:idx])
		rest := strings.TrimSpace(s[idx+1:])
		if !strings.HasPrefix(rest, "/") || !strings.HasSuffix(rest, "/") || len(rest) < 2 {
			return nil, fmt.Errorf("unsupported query %q: value must be a /regex/", s)
		}
		pattern = rest[1 : len(rest)-1]
		hasPattern = true
	}
	if strings.ContainsAny(keyPart, " \t&|!?*+@") {
		return nil, fmt.Errorf("unsupported query %q: only single [ns::]name=/regex/ terms are supported", s)
	}

	q := &Query{}
	if ns, name, ok := strings.Cut(keyPart, "::"); ok {
		q.Key = graph.AnnoKey{Namespace: ns, Name: name}
		q.nsExplicit = true
	} else if keyPart == "tok" {
		q.Key = graph.TokKey
		q.nsExplicit = true
	} else {
		q.Key = graph.AnnoKey{Name: keyPart}
	}

	if hasPattern {
		// Value patterns are anchored, matching the whole value.
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid pattern in query %q: %w", s, err)
		}
		q.Re = re
	}
	return q, nil
}

// Find returns every node annotation matching the query. Result order is
// unspecified.
func (q *Query) Find(g *graph.Graph) ([]graph.Match, error) {
	var ns *string
	if q.nsExplicit {
		ns = &q.Key.Namespace
	}
	candidates, err := g.ExactAnnoSearch(ns, q.Key.Name, graph.AnyValue())
	if err != nil {
		return nil, err
	}
	if q.Re == nil {
		return candidates, nil
	}
	var matches []graph.Match
	for _, m := range candidates {
		value, ok, err := g.GetValueForItem(m.Node, m.Key)
		if err != nil {
			return nil, err
		}
		if ok && q.Re.MatchString(value) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Count returns the number of matches of the query.
func (q *Query) Count(g *graph.Graph) (uint64, error) {
	matches, err := q.Find(g)
	if err != nil {
		return 0, err
	}
	return uint64(len(matches)), nil
}
