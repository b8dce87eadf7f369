// Package importer contains the importers of the conversion pipeline and the
// shared corpus-structure utilities they build on. Importers communicate with
// the graph exclusively through update logs.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/korpling/annatto/pkg/graph"
)

// FileReference is one document file found while scanning a corpus
// directory, together with the corpus node name derived for it.
type FileReference struct {
	// Path is the location of the file on disk.
	Path string
	// NodeName is "root_name/rel/path/without_extension".
	NodeName string
}

// ImportCorpusGraphFromFiles derives the corpus/document skeleton from a
// filesystem tree and appends it to the update log as PartOf events.
//
// The scan is deterministic: sibling names sort lexicographically and
// directories ascend before their files. Every directory becomes a corpus
// node; every file with an accepted extension becomes a document corpus node
// carrying annis::doc with the file stem. Files with other extensions are
// ignored; empty directories produce only the corpus node.
//
// The returned references pair each document file with its node name, in the
// order the documents were encountered.
func ImportCorpusGraphFromFiles(u *graph.GraphUpdate, rootPath string, extensions []string) ([]FileReference, error) {
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	rootName := filepath.Base(root)
	if !info.IsDir() {
		// A single file is its own one-document corpus.
		rootName = stemOf(rootName)
		u.Add(graph.AddNode{NodeName: rootName, NodeType: graph.NodeTypeCorpus})
		addDocLabel(u, rootName, rootName)
		return []FileReference{{Path: root, NodeName: rootName}}, nil
	}

	u.Add(graph.AddNode{NodeName: rootName, NodeType: graph.NodeTypeCorpus})
	var refs []FileReference
	if err := scanDirectory(u, root, rootName, extensions, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func scanDirectory(u *graph.GraphUpdate, dir, parentName string, extensions []string, refs *[]FileReference) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var subdirs, files []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(subdirs)
	sort.Strings(files)

	for _, name := range subdirs {
		nodeName := parentName + "/" + name
		u.Add(graph.AddNode{NodeName: nodeName, NodeType: graph.NodeTypeCorpus})
		addPartOf(u, nodeName, parentName)
		if err := scanDirectory(u, filepath.Join(dir, name), nodeName, extensions, refs); err != nil {
			return err
		}
	}
	for _, name := range files {
		if !hasAcceptedExtension(name, extensions) {
			continue
		}
		stem := stemOf(name)
		nodeName := parentName + "/" + stem
		u.Add(graph.AddNode{NodeName: nodeName, NodeType: graph.NodeTypeCorpus})
		addDocLabel(u, nodeName, stem)
		addPartOf(u, nodeName, parentName)
		*refs = append(*refs, FileReference{Path: filepath.Join(dir, name), NodeName: nodeName})
	}
	return nil
}

func addPartOf(u *graph.GraphUpdate, child, parent string) {
	u.Add(graph.AddEdge{
		SourceNode:    child,
		TargetNode:    parent,
		Layer:         graph.AnnisNamespace,
		ComponentType: graph.PartOf,
	})
}

func addDocLabel(u *graph.GraphUpdate, nodeName, doc string) {
	u.Add(graph.AddNodeLabel{
		NodeName:  nodeName,
		AnnoNs:    graph.AnnisNamespace,
		AnnoName:  graph.DocKey.Name,
		AnnoValue: doc,
	})
}

func hasAcceptedExtension(fileName string, extensions []string) bool {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	for _, accepted := range extensions {
		if strings.EqualFold(ext, accepted) {
			return true
		}
	}
	return false
}

func stemOf(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// wrapImportError attaches module and path context to an importer failure.
func wrapImportError(module, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s could not read %s: %w", module, path, err)
}
