package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// ExportMeta writes the metadata of the graph as plain key=value files, one
// file per node selected by the name key. Generally all nodes are up for
// export; the name key subsets the nodes and defines the file names.
type ExportMeta struct {
	// NameKey determines the file name and which nodes are exported: only
	// nodes holding a value for this key produce a file. If values are not
	// unique, an already written file is overwritten.
	NameKey graph.AnnoKey `toml:"name_key" doc:"This key determines the file name and which nodes are exported."`
	// Only restricts the exported annotation keys. Listing keys with the
	// "annis" namespace here is allowed; they are skipped by default.
	Only []graph.AnnoKey `toml:"only" doc:"Restrict the exported annotation keys."`
	// WriteNs exports the namespaces as well, separated from the annotation
	// name by "::".
	WriteNs bool `toml:"write_ns" doc:"Export the namespaces as well, separated by double colons."`
}

// NewExportMeta returns the exporter with its defaults: one file per
// document, selected by annis::doc.
func NewExportMeta() *ExportMeta {
	return &ExportMeta{NameKey: graph.DocKey}
}

// ExportCorpus writes one .meta file per selected node.
func (ex *ExportMeta) ExportCorpus(ctx context.Context, g *graph.Graph, outputPath string, stepID status.StepID, sender status.Sender) error {
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return err
	}
	nameKey := ex.NameKey
	if nameKey.Name == "" {
		nameKey = graph.DocKey
	}
	matches, err := g.ExactAnnoSearch(&nameKey.Namespace, nameKey.Name, graph.AnyValue())
	if err != nil {
		return err
	}
	progress := status.NewProgressReporter(sender, stepID, uint64(len(matches)))

	for _, m := range matches {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name, ok, err := g.GetValueForItem(m.Node, nameKey)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		content, err := ex.renderNode(g, m.Node)
		if err != nil {
			return err
		}
		fileName := filepath.Join(outputPath, name+"."+ex.FileExtension())
		if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(fileName, []byte(content), 0644); err != nil {
			return err
		}
		progress.Worked(1)
	}
	return nil
}

// FileExtension returns "meta".
func (*ExportMeta) FileExtension() string { return "meta" }

func (ex *ExportMeta) renderNode(g *graph.Graph, node graph.NodeID) (string, error) {
	annos, err := g.GetAnnotationsForItem(node)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, anno := range annos {
		if !ex.wantKey(anno.Key) {
			continue
		}
		if ex.WriteNs && anno.Key.Namespace != "" {
			fmt.Fprintf(&sb, "%s::%s=%s\n", anno.Key.Namespace, anno.Key.Name, anno.Value)
		} else {
			fmt.Fprintf(&sb, "%s=%s\n", anno.Key.Name, anno.Value)
		}
	}
	return sb.String(), nil
}

// wantKey applies the Only restriction. Without one, every key outside the
// reserved "annis" namespace is exported.
func (ex *ExportMeta) wantKey(key graph.AnnoKey) bool {
	if len(ex.Only) == 0 {
		return key.Namespace != graph.AnnisNamespace
	}
	for _, allowed := range ex.Only {
		if allowed == key {
			return true
		}
	}
	return false
}
