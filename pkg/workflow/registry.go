package workflow

import (
	"sort"

	"github.com/korpling/annatto/pkg/exporter"
	"github.com/korpling/annatto/pkg/importer"
	"github.com/korpling/annatto/pkg/manipulator"
)

// The module registry is a closed set resolved at workflow parse time, so an
// unknown module name surfaces during validation, before anything runs. Each
// factory returns a fresh module with its defaults; the workflow parser then
// decodes the step's configuration into it.

func newImporter(name string) (Importer, bool) {
	switch name {
	case "none":
		return &importer.CreateEmptyCorpus{}, true
	case "path":
		return &importer.CreateFileNodes{}, true
	case "graphml":
		return &importer.ImportGraphML{}, true
	default:
		return nil, false
	}
}

func newManipulator(name string) (Manipulator, bool) {
	switch name {
	case "check":
		return &manipulator.Check{}, true
	case "filter":
		return &manipulator.FilterNodes{}, true
	case "map":
		return &manipulator.MapAnnos{}, true
	default:
		return nil, false
	}
}

func newExporter(name string) (Exporter, bool) {
	switch name {
	case "graphml":
		return &exporter.ExportGraphML{}, true
	case "meta":
		return exporter.NewExportMeta(), true
	default:
		return nil, false
	}
}

var moduleDescriptions = map[string]string{
	"none":    "A special importer that imports nothing.",
	"path":    "Links the files below the input path into the graph as file nodes.",
	"graphml": "Generic GraphML interchange format.",
	"check":   "Runs test queries against the graph and fails the workflow on a miss.",
	"filter":  "Keeps or removes the nodes matching a query.",
	"map":     "Creates new annotations based on existing annotation values.",
	"meta":    "Writes the metadata of the graph as plain key=value files.",
}

// ImporterNames lists the registered importer names, sorted.
func ImporterNames() []string {
	return sortedNames("none", "path", "graphml")
}

// ManipulatorNames lists the registered graph operation names, sorted.
func ManipulatorNames() []string {
	return sortedNames("check", "filter", "map")
}

// ExporterNames lists the registered exporter names, sorted.
func ExporterNames() []string {
	return sortedNames("graphml", "meta")
}

// Describe returns the reflective description of a registered module.
func Describe(name string) (ModuleConfiguration, bool) {
	description, ok := moduleDescriptions[name]
	return ModuleConfiguration{Name: name, Description: description}, ok
}

func sortedNames(names ...string) []string {
	sort.Strings(names)
	return names
}
