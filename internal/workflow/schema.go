package workflow

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return compiledSchema, schemaErr
}

// validateSchema checks the shape of the known keys against the embedded
// JSON Schema. The most specific violation (deepest path) is reported.
func validateSchema(root *yaml.Node) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("workflow: loading schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(toGeneric(root)))
	if err != nil {
		return fmt.Errorf("workflow: validating schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	sort.SliceStable(errs, func(i, j int) bool {
		di, dj := len(schemaSegments(errs[i])), len(schemaSegments(errs[j]))
		if di != dj {
			return di > dj
		}
		if errs[i].Field() != errs[j].Field() {
			return errs[i].Field() < errs[j].Field()
		}
		if errs[i].Type() != errs[j].Type() {
			return errs[i].Type() < errs[j].Type()
		}
		return errs[i].Description() < errs[j].Description()
	})
	first := errs[0]

	segments := schemaSegments(first)
	node, path := locate(root, segments)
	return newParseError(path, nodePos(node), "%s", schemaMessage(first))
}

// schemaSegments splits a gojsonschema field path into its segments. The
// root context yields no segments.
func schemaSegments(e gojsonschema.ResultError) []string {
	field := e.Field()
	if field == "" || field == "(root)" {
		return nil
	}
	return strings.Split(field, ".")
}

func schemaMessage(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			return fmt.Sprintf("missing required key %q", prop)
		}
	}
	return e.Description()
}

// locate walks segments from root and returns the deepest node reached with
// its dotted path (sequence indices rendered as [n]).
func locate(root *yaml.Node, segments []string) (*yaml.Node, string) {
	node := resolve(root)
	path := ""
	for _, seg := range segments {
		switch node.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for _, f := range fields(node) {
				if f.key.Value == seg {
					next = f.value
					if resolve(f.value).Kind == yaml.ScalarNode {
						// Point at the key for scalar values.
						next = f.key
					}
					break
				}
			}
			if next == nil {
				return node, path
			}
			path = joinPath(path, seg)
			node = resolve(next)
		case yaml.SequenceNode:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node.Content) {
				return node, path
			}
			path = fmt.Sprintf("%s[%d]", path, i)
			node = resolve(node.Content[i])
		default:
			return node, path
		}
	}
	return node, path
}
