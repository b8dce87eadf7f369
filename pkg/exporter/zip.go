package exporter

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/korpling/annatto/pkg/graph"
)

// zipCorpus packs the primary artifacts plus all files referenced by
// annis::file nodes into a single <corpus>.zip in the output directory.
// Referenced files keep their original relative paths inside the archive.
func zipCorpus(g *graph.Graph, outputPath, corpusName string, artifacts []string) error {
	zipPath := filepath.Join(outputPath, corpusName+".zip")
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()
	archive := zip.NewWriter(f)

	for _, artifact := range artifacts {
		rel, err := filepath.Rel(outputPath, artifact)
		if err != nil {
			rel = filepath.Base(artifact)
		}
		if err := addFileToZip(archive, artifact, filepath.ToSlash(rel)); err != nil {
			return err
		}
	}

	ns := graph.AnnisNamespace
	fileRefs, err := g.ExactAnnoSearch(&ns, graph.FileKey.Name, graph.AnyValue())
	if err != nil {
		return err
	}
	for _, m := range fileRefs {
		path, ok, err := g.GetValueForItem(m.Node, graph.FileKey)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		name, _, err := g.GetValueForItem(m.Node, graph.NodeNameKey)
		if err != nil {
			return err
		}
		if name == "" {
			name = filepath.Base(path)
		}
		if err := addFileToZip(archive, path, name); err != nil {
			return err
		}
	}

	if err := archive.Close(); err != nil {
		return err
	}
	return f.Close()
}

func addFileToZip(archive *zip.Writer, path, nameInZip string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := archive.Create(nameInZip)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
