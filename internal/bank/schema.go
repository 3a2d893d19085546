package bank

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://question-bank.json"

var weightsSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": map[string]any{"type": "number"},
}

// bankSchema describes the structure of a question bank document. Cross
// references (role keys, unique IDs) are checked separately by validateBank.
var bankSchema = map[string]any{
	"type":     "object",
	"required": []any{"version", "roles", "questions"},
	"properties": map[string]any{
		"version": map[string]any{"type": "string", "minLength": 1},
		"title":   map[string]any{"type": "string"},
		"roles": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"key", "label"},
				"properties": map[string]any{
					"key":         map[string]any{"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
					"label":       map[string]any{"type": "string", "minLength": 1},
					"description": map[string]any{"type": "string"},
					"icon":        map[string]any{"type": "string"},
					"image":       map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
		},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "text"},
				"properties": map[string]any{
					"id":          map[string]any{"type": "string", "minLength": 1},
					"text":        map[string]any{"type": "string", "minLength": 1},
					"description": map[string]any{"type": "string"},
					"kind":        map[string]any{"enum": []any{"choice", "likert"}},
					"scale":       map[string]any{"type": "integer", "minimum": 2, "maximum": 7},
					"weights":     weightsSchema,
					"choices": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"label"},
							"properties": map[string]any{
								"label":   map[string]any{"type": "string", "minLength": 1},
								"weights": weightsSchema,
							},
							"additionalProperties": false,
						},
					},
				},
				"additionalProperties": false,
			},
		},
	},
	"additionalProperties": false,
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	// The compiler wants JSON-decoded values, not Go literals.
	defBytes, err := json.Marshal(bankSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(schemaURL)
})

// checkSchema validates a decoded document against the bank schema.
func checkSchema(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile question bank schema: %w", err)
	}

	// Round-trip through JSON so YAML scalars take JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize question bank: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("normalize question bank: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("question bank schema: %w", err)
	}
	return nil
}
