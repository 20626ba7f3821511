package tei

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

// BuildMappingJSONSchema returns the JSON-Schema of the article mapping as a generic map.
func BuildMappingJSONSchema() map[string]any {
	section := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"heading": map[string]any{"type": "string"},
			"text":    map[string]any{"type": "string"},
		},
		"required": []string{"heading", "text"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":    map[string]any{"type": "string"},
			"abstract": map[string]any{"type": "string"},
			"sections": map[string]any{"type": "array", "items": section},
			"authors":  map[string]any{"type": "string", "minLength": 1}, // optional
		},
		"required": []string{"title", "abstract", "sections"},
	}
}

var (
	mappingSchemaOnce sync.Once
	mappingSchema     *jsonschema.Schema
	mappingSchemaErr  error
)

func compiledMappingSchema() (*jsonschema.Schema, error) {
	mappingSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildMappingJSONSchema())
		if err != nil {
			mappingSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("mapping.json", bytes.NewReader(b)); err != nil {
			mappingSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		mappingSchema, mappingSchemaErr = compiler.Compile("mapping.json")
		if mappingSchemaErr != nil {
			mappingSchemaErr = fmt.Errorf("compile schema: %w", mappingSchemaErr)
		}
	})
	return mappingSchema, mappingSchemaErr
}

// ValidateMapping checks a mapping against the article mapping schema.
func ValidateMapping(m entity.ParsedMapping) error {
	if m.Sections == nil {
		m.Sections = []entity.Section{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	return ValidateMappingJSON(data)
}

// ValidateMappingJSON validates raw JSON against the article mapping schema.
func ValidateMappingJSON(data []byte) error {
	schema, err := compiledMappingSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("mapping does not match schema: %w", err)
	}
	return nil
}
