package manipulator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/query"
	"github.com/korpling/annatto/pkg/status"
)

// MapAnnos creates new annotations based on existing annotation values.
//
// Rules are given inline or in a separate TOML rule file. Each rule has a
// query describing the nodes the annotation is added to, and the annotation
// itself as ns/name/value fields. The value is a fixed string.
//
//	[[rules]]
//	query = "tok=/I/"
//	ns = ""
//	name = "pos"
//	value = "PRON"
type MapAnnos struct {
	// RuleFile is the path of a TOML file containing an array of rules,
	// resolved against the workflow directory when relative.
	RuleFile string `toml:"rule_file" doc:"The path of a TOML file containing an array of mapping rules."`
	// Rules are mapping rules given inline, applied after those of the rule
	// file.
	Rules []MappingRule `toml:"rules" doc:"Mapping rules given inline, applied after those of the rule file."`
}

// MappingRule is one mapping from a query to a new annotation.
type MappingRule struct {
	Query string `toml:"query"`
	Ns    string `toml:"ns"`
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// ManipulateCorpus applies all rules in order through one update log.
func (m *MapAnnos) ManipulateCorpus(g *graph.Graph, workflowDir string, stepID status.StepID, sender status.Sender) error {
	rules, err := m.loadRules(workflowDir)
	if err != nil {
		return err
	}
	progress := status.NewProgressReporter(sender, stepID, uint64(len(rules)))
	update := graph.NewGraphUpdate()
	for _, rule := range rules {
		q, err := query.Parse(rule.Query)
		if err != nil {
			return err
		}
		matches, err := q.Find(g)
		if err != nil {
			return err
		}
		for _, match := range matches {
			name, ok, err := g.GetValueForItem(match.Node, graph.NodeNameKey)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			update.Add(graph.AddNodeLabel{
				NodeName:  name,
				AnnoNs:    rule.Ns,
				AnnoName:  rule.Name,
				AnnoValue: rule.Value,
			})
		}
		progress.Worked(1)
	}
	return g.ApplyUpdate(update, nil)
}

// RequiresStatistics is false.
func (*MapAnnos) RequiresStatistics() bool { return false }

func (m *MapAnnos) loadRules(workflowDir string) ([]MappingRule, error) {
	rules := []MappingRule{}
	if m.RuleFile != "" {
		path := m.RuleFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(workflowDir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var mapping struct {
			Rules []MappingRule `toml:"rules"`
		}
		if err := toml.Unmarshal(raw, &mapping); err != nil {
			return nil, fmt.Errorf("could not parse rule file %s: %w", path, err)
		}
		rules = append(rules, mapping.Rules...)
	}
	rules = append(rules, m.Rules...)
	return rules, nil
}
