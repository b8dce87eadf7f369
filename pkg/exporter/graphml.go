// Package exporter contains the exporters of the conversion pipeline.
// Exporters read a shared graph snapshot and write files; they never mutate
// the graph.
package exporter

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
	"github.com/korpling/annatto/pkg/util"
)

// ExportGraphML writes the generic GraphML interchange format. The file
// carries every node, edge and annotation of the graph verbatim, so a
// following import reproduces the graph up to NodeID renumbering.
type ExportGraphML struct {
	// Zip packs the written artifacts and all files referenced by file nodes
	// into a single <corpus>.zip in the output directory.
	Zip bool `toml:"zip" doc:"Pack the written artifacts and all linked files into a single <corpus>.zip."`
}

// ExportCorpus writes <corpus>.graphml into the output path.
func (ex *ExportGraphML) ExportCorpus(ctx context.Context, g *graph.Graph, outputPath string, stepID status.StepID, sender status.Sender) error {
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return err
	}
	corpusName, err := rootCorpusName(g)
	if err != nil {
		return err
	}

	nodes, err := g.NodeAnnos().Items()
	if err != nil {
		return err
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	components := g.GetAllComponents(nil, nil)

	progress := status.NewProgressReporter(sender, stepID, uint64(len(nodes)+len(components)))

	fileName := filepath.Join(outputPath, corpusName+"."+ex.FileExtension())
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := newGraphMLWriter(f)
	if err := writer.begin(); err != nil {
		return err
	}
	if err := writer.collectKeys(g, nodes, components); err != nil {
		return err
	}
	for _, node := range nodes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := writer.writeNode(g, node); err != nil {
			return err
		}
		progress.Worked(1)
	}
	for _, c := range components {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := writer.writeComponent(g, c); err != nil {
			return err
		}
		progress.Worked(1)
	}
	if err := writer.end(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if ex.Zip {
		return zipCorpus(g, outputPath, corpusName, []string{fileName})
	}
	return nil
}

// FileExtension returns "graphml".
func (*ExportGraphML) FileExtension() string { return "graphml" }

// rootCorpusName returns the name of the first root corpus node, or
// "corpus" for a graph without one.
func rootCorpusName(g *graph.Graph) (string, error) {
	helper := util.NewCorpusGraphHelper(g)
	roots, err := helper.RootCorpusNodes()
	if err != nil {
		return "", err
	}
	if len(roots) == 0 {
		return "corpus", nil
	}
	name, _, err := g.GetValueForItem(roots[0], graph.NodeNameKey)
	if err != nil {
		return "", err
	}
	return name, nil
}

// graphMLWriter streams one GraphML document token by token.
type graphMLWriter struct {
	enc      *xml.Encoder
	nodeKeys map[graph.AnnoKey]string
	edgeKeys map[graph.AnnoKey]string
}

func newGraphMLWriter(f *os.File) *graphMLWriter {
	enc := xml.NewEncoder(f)
	enc.Indent("", "\t")
	return &graphMLWriter{
		enc:      enc,
		nodeKeys: make(map[graph.AnnoKey]string),
		edgeKeys: make(map[graph.AnnoKey]string),
	}
}

func (w *graphMLWriter) begin() error {
	return w.enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Local: "graphml"},
		Attr: []xml.Attr{{
			Name:  xml.Name{Local: "xmlns"},
			Value: "http://graphml.graphdrawing.org/xmlns",
		}},
	})
}

// collectKeys declares every annotation key of the graph up front, in sorted
// order, so key ids are deterministic.
func (w *graphMLWriter) collectKeys(g *graph.Graph, nodes []graph.NodeID, components []graph.Component) error {
	var nodeKeys, edgeKeys []graph.AnnoKey
	seenNode := make(map[graph.AnnoKey]struct{})
	for _, node := range nodes {
		annos, err := g.GetAnnotationsForItem(node)
		if err != nil {
			return err
		}
		for _, anno := range annos {
			if anno.Key == graph.NodeNameKey {
				continue
			}
			if _, ok := seenNode[anno.Key]; !ok {
				seenNode[anno.Key] = struct{}{}
				nodeKeys = append(nodeKeys, anno.Key)
			}
		}
	}
	seenEdge := make(map[graph.AnnoKey]struct{})
	for _, c := range components {
		gs := g.GetGraphStorage(c)
		edges, err := allEdges(gs)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			annos, err := gs.EdgeAnnos().GetAnnotations(edge)
			if err != nil {
				return err
			}
			for _, anno := range annos {
				if _, ok := seenEdge[anno.Key]; !ok {
					seenEdge[anno.Key] = struct{}{}
					edgeKeys = append(edgeKeys, anno.Key)
				}
			}
		}
	}
	sortKeys(nodeKeys)
	sortKeys(edgeKeys)

	id := 0
	for _, key := range nodeKeys {
		w.nodeKeys[key] = fmt.Sprintf("k%d", id)
		if err := w.writeKeyDecl(w.nodeKeys[key], "node", key); err != nil {
			return err
		}
		id++
	}
	for _, key := range edgeKeys {
		w.edgeKeys[key] = fmt.Sprintf("k%d", id)
		if err := w.writeKeyDecl(w.edgeKeys[key], "edge", key); err != nil {
			return err
		}
		id++
	}

	return w.enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Local: "graph"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "edgedefault"}, Value: "directed"}},
	})
}

func (w *graphMLWriter) writeKeyDecl(id, domain string, key graph.AnnoKey) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "key"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: id},
			{Name: xml.Name{Local: "for"}, Value: domain},
			{Name: xml.Name{Local: "attr.name"}, Value: key.String()},
			{Name: xml.Name{Local: "attr.type"}, Value: "string"},
		},
	}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}
	return w.enc.EncodeToken(start.End())
}

func (w *graphMLWriter) writeNode(g *graph.Graph, node graph.NodeID) error {
	name, _, err := g.GetValueForItem(node, graph.NodeNameKey)
	if err != nil {
		return err
	}
	start := xml.StartElement{
		Name: xml.Name{Local: "node"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "id"}, Value: name}},
	}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}
	annos, err := g.GetAnnotationsForItem(node)
	if err != nil {
		return err
	}
	for _, anno := range annos {
		if anno.Key == graph.NodeNameKey {
			continue
		}
		if err := w.writeData(w.nodeKeys[anno.Key], anno.Value); err != nil {
			return err
		}
	}
	return w.enc.EncodeToken(start.End())
}

func (w *graphMLWriter) writeComponent(g *graph.Graph, c graph.Component) error {
	gs := g.GetGraphStorage(c)
	edges, err := allEdges(gs)
	if err != nil {
		return err
	}
	label := c.String()
	for _, edge := range edges {
		sourceName, _, err := g.GetValueForItem(edge.Source, graph.NodeNameKey)
		if err != nil {
			return err
		}
		targetName, _, err := g.GetValueForItem(edge.Target, graph.NodeNameKey)
		if err != nil {
			return err
		}
		start := xml.StartElement{
			Name: xml.Name{Local: "edge"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "source"}, Value: sourceName},
				{Name: xml.Name{Local: "target"}, Value: targetName},
				{Name: xml.Name{Local: "label"}, Value: label},
			},
		}
		if err := w.enc.EncodeToken(start); err != nil {
			return err
		}
		annos, err := gs.EdgeAnnos().GetAnnotations(edge)
		if err != nil {
			return err
		}
		for _, anno := range annos {
			if err := w.writeData(w.edgeKeys[anno.Key], anno.Value); err != nil {
				return err
			}
		}
		if err := w.enc.EncodeToken(start.End()); err != nil {
			return err
		}
	}
	return nil
}

func (w *graphMLWriter) writeData(keyID, value string) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "data"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "key"}, Value: keyID}},
	}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := w.enc.EncodeToken(xml.CharData(value)); err != nil {
		return err
	}
	return w.enc.EncodeToken(start.End())
}

func (w *graphMLWriter) end() error {
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "graph"}}); err != nil {
		return err
	}
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "graphml"}}); err != nil {
		return err
	}
	return w.enc.Flush()
}

// allEdges lists every edge of a storage, ordered by (source, target).
func allEdges(gs graph.GraphStorage) ([]graph.Edge, error) {
	sources, err := gs.SourceNodes()
	if err != nil {
		return nil, err
	}
	var edges []graph.Edge
	for _, source := range sources {
		targets, err := gs.GetOutgoingEdges(source)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			edges = append(edges, graph.Edge{Source: source, Target: target})
		}
	}
	return edges, nil
}

func sortKeys(keys []graph.AnnoKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
}
