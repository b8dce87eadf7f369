package importer

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/korpling/annatto/pkg/graph"
	"github.com/korpling/annatto/pkg/status"
)

// CreateFileNodes links the files below the input path into the graph as
// file nodes, so exporters can carry them along (e. g. into a zip archive).
type CreateFileNodes struct {
	// CorpusName optionally names an existing corpus node the file nodes are
	// attached to with PartOf edges. The node is created if missing.
	CorpusName string `toml:"corpus_name" doc:"Name of an existing corpus node the file nodes are attached to with PartOf edges."`
}

// ImportCorpus adds one file node per regular file below the input path.
func (c *CreateFileNodes) ImportCorpus(ctx context.Context, inputPath string, stepID status.StepID, sender status.Sender) (*graph.GraphUpdate, error) {
	update := graph.NewGraphUpdate()
	base, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, wrapImportError(stepID.ModuleName, inputPath, err)
	}
	baseName := filepath.Base(base)

	if c.CorpusName != "" {
		update.Add(graph.AddNode{NodeName: c.CorpusName, NodeType: graph.NodeTypeCorpus})
	}
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		nodeName := baseName + "/" + filepath.ToSlash(rel)
		update.Add(graph.AddNode{NodeName: nodeName, NodeType: graph.NodeTypeFile})
		update.Add(graph.AddNodeLabel{
			NodeName:  nodeName,
			AnnoNs:    graph.AnnisNamespace,
			AnnoName:  graph.FileKey.Name,
			AnnoValue: path,
		})
		if c.CorpusName != "" {
			update.Add(graph.AddEdge{
				SourceNode:    nodeName,
				TargetNode:    c.CorpusName,
				Layer:         graph.AnnisNamespace,
				ComponentType: graph.PartOf,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapImportError(stepID.ModuleName, inputPath, err)
	}
	return update, nil
}

// FileExtensions returns no extensions; every file is linked.
func (*CreateFileNodes) FileExtensions() []string { return nil }
