// Package profile generates and validates the JSON Schema for a resource
// limits profile: invopop/jsonschema reflects types.ResourceLimits into a
// schema document, and xeipuuv/gojsonschema validates a candidate
// profile file against it before the limits are accepted.
package profile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/xeipuuv/gojsonschema"
)

// Schema reflects types.ResourceLimits into a JSON Schema document.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	return reflector.Reflect(&types.ResourceLimits{})
}

// WriteSchema writes the reflected schema to path.
func WriteSchema(path string) error {
	schema := Schema()
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

// Validate checks the profile JSON file at path against the reflected
// schema and returns a human-readable list of violations, empty when the
// file is valid.
func Validate(path string) ([]string, error) {
	schema := Schema()
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("serialize schema: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewReferenceLoader("file://" + path)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}

// Load reads and decodes a profile JSON file into ResourceLimits; it does
// not validate against the schema, callers that need that guarantee should
// call Validate first.
func Load(path string) (types.ResourceLimits, error) {
	var limits types.ResourceLimits
	f, err := os.Open(path)
	if err != nil {
		return limits, err
	}
	defer f.Close()
	err = json.NewDecoder(f).Decode(&limits)
	return limits, err
}
