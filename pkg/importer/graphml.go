package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// ImportGraphML reads the generic GraphML interchange format. Every node,
// edge and annotation in the file is carried into the update log verbatim,
// so exporting a graph as GraphML and importing the result reproduces the
// graph up to NodeID renumbering.
type ImportGraphML struct{}

// ImportCorpus reads one .graphml file, or every .graphml file below a
// directory.
func (im *ImportGraphML) ImportCorpus(ctx context.Context, inputPath string, stepID status.StepID, sender status.Sender) (*graph.GraphUpdate, error) {
	files, err := graphmlFiles(inputPath)
	if err != nil {
		return nil, wrapImportError(stepID.ModuleName, inputPath, err)
	}
	progress := status.NewProgressReporter(sender, stepID, uint64(len(files)))
	update := graph.NewGraphUpdate()
	for _, file := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := readGraphMLFile(file, update); err != nil {
			return nil, wrapImportError(stepID.ModuleName, file, err)
		}
		progress.Worked(1)
	}
	return update, nil
}

// FileExtensions returns the extensions scanned in directory mode.
func (*ImportGraphML) FileExtensions() []string { return []string{"graphml"} }

func graphmlFiles(inputPath string) ([]string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{inputPath}, nil
	}
	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".graphml") {
			continue
		}
		files = append(files, filepath.Join(inputPath, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no .graphml file in %s", inputPath)
	}
	return files, nil
}

type graphmlKey struct {
	domain string // "node" or "edge"
	anno   graph.AnnoKey
}

func readGraphMLFile(path string, update *graph.GraphUpdate) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return readGraphML(f, update)
}

// readGraphML streams one GraphML document into the update log. Node events
// are appended while parsing; edge events are buffered and appended after
// every node, so node types are never decided by the AddEdge auto-create
// fallback.
func readGraphML(r io.Reader, update *graph.GraphUpdate) error {
	decoder := xml.NewDecoder(r)
	keys := make(map[string]graphmlKey)
	var edgeEvents []graph.UpdateEvent

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "key":
			id, domain, attrName := "", "", ""
			for _, attr := range start.Attr {
				switch attr.Name.Local {
				case "id":
					id = attr.Value
				case "for":
					domain = attr.Value
				case "attr.name":
					attrName = attr.Value
				}
			}
			if id != "" {
				keys[id] = graphmlKey{domain: domain, anno: graph.ParseAnnoKey(attrName)}
			}
		case "node":
			if err := readGraphMLNode(decoder, start, keys, update); err != nil {
				return err
			}
		case "edge":
			events, err := readGraphMLEdge(decoder, start, keys)
			if err != nil {
				return err
			}
			edgeEvents = append(edgeEvents, events...)
		}
	}
	for _, event := range edgeEvents {
		update.Add(event)
	}
	return nil
}

func readGraphMLNode(decoder *xml.Decoder, start xml.StartElement, keys map[string]graphmlKey, update *graph.GraphUpdate) error {
	var parsed struct {
		ID   string `xml:"id,attr"`
		Data []struct {
			Key   string `xml:"key,attr"`
			Value string `xml:",chardata"`
		} `xml:"data"`
	}
	if err := decoder.DecodeElement(&parsed, &start); err != nil {
		return err
	}
	if parsed.ID == "" {
		return fmt.Errorf("node element without id")
	}

	nodeType := graph.NodeTypeNode
	var labels []graph.AddNodeLabel
	for _, data := range parsed.Data {
		key, ok := keys[data.Key]
		if !ok {
			return fmt.Errorf("node %s references undeclared key %q", parsed.ID, data.Key)
		}
		switch key.anno {
		case graph.NodeTypeKey:
			nodeType = data.Value
		case graph.NodeNameKey:
			// The id attribute is authoritative.
		default:
			labels = append(labels, graph.AddNodeLabel{
				NodeName:  parsed.ID,
				AnnoNs:    key.anno.Namespace,
				AnnoName:  key.anno.Name,
				AnnoValue: data.Value,
			})
		}
	}
	update.Add(graph.AddNode{NodeName: parsed.ID, NodeType: nodeType})
	for _, label := range labels {
		update.Add(label)
	}
	return nil
}

func readGraphMLEdge(decoder *xml.Decoder, start xml.StartElement, keys map[string]graphmlKey) ([]graph.UpdateEvent, error) {
	var parsed struct {
		Source string `xml:"source,attr"`
		Target string `xml:"target,attr"`
		Label  string `xml:"label,attr"`
		Data   []struct {
			Key   string `xml:"key,attr"`
			Value string `xml:",chardata"`
		} `xml:"data"`
	}
	if err := decoder.DecodeElement(&parsed, &start); err != nil {
		return nil, err
	}
	component, err := parseComponentLabel(parsed.Label)
	if err != nil {
		return nil, err
	}

	events := []graph.UpdateEvent{graph.AddEdge{
		SourceNode:    parsed.Source,
		TargetNode:    parsed.Target,
		Layer:         component.Layer,
		ComponentType: component.Type,
		ComponentName: component.Name,
	}}
	for _, data := range parsed.Data {
		key, ok := keys[data.Key]
		if !ok {
			return nil, fmt.Errorf("edge %s -> %s references undeclared key %q", parsed.Source, parsed.Target, data.Key)
		}
		events = append(events, graph.AddEdgeLabel{
			SourceNode:    parsed.Source,
			TargetNode:    parsed.Target,
			Layer:         component.Layer,
			ComponentType: component.Type,
			ComponentName: component.Name,
			AnnoNs:        key.anno.Namespace,
			AnnoName:      key.anno.Name,
			AnnoValue:     data.Value,
		})
	}
	return events, nil
}

// parseComponentLabel parses the "Type/layer/name" form used on GraphML edge
// labels. The component name may itself contain slashes.
func parseComponentLabel(label string) (graph.Component, error) {
	parts := strings.SplitN(label, "/", 3)
	if len(parts) != 3 {
		return graph.Component{}, fmt.Errorf("invalid component label %q", label)
	}
	ctype, err := graph.ParseComponentType(parts[0])
	if err != nil {
		return graph.Component{}, err
	}
	return graph.Component{Type: ctype, Layer: parts[1], Name: parts[2]}, nil
}
