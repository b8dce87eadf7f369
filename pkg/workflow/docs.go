package workflow

import (
	"reflect"
	"strings"
)

// FieldDoc describes one configuration option of a module for the
// documentation generator: its name as written in the workflow file and a
// human-readable description that survives into user-facing output
// unchanged.
type FieldDoc struct {
	Name        string
	Description string
}

// ConfigFields walks a module's configuration struct and collects its
// options. The field name is taken from the toml tag, the description from
// the doc tag.
func ConfigFields(module any) []FieldDoc {
	t := reflect.TypeOf(module)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var docs []FieldDoc
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			continue
		}
		docs = append(docs, FieldDoc{
			Name:        name,
			Description: field.Tag.Get("doc"),
		})
	}
	return docs
}
