package feedback

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/user/intervoice/internal/types"
)

// schemaDoc is the structured evaluation every provider must return. The
// category enum is filled from types.FeedbackCategories.
const schemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "totalScore": {"type": "number", "minimum": 0, "maximum": 100},
    "categoryScores": {
      "type": "array",
      "minItems": %[2]d,
      "maxItems": %[2]d,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "enum": %[1]s},
          "score": {"type": "number", "minimum": 0, "maximum": 100},
          "comment": {"type": "string"}
        },
        "required": ["name", "score", "comment"]
      }
    },
    "strengths": {"type": "array", "items": {"type": "string"}},
    "areasForImprovement": {"type": "array", "items": {"type": "string"}},
    "finalAssessment": {"type": "string"}
  },
  "required": ["totalScore", "categoryScores", "strengths", "areasForImprovement", "finalAssessment"]
}`

const schemaURL = "intervoice://feedback.json"

// SchemaName labels the schema in provider requests.
const SchemaName = "interview_feedback"

// Schema returns the evaluation JSON Schema document.
func Schema() json.RawMessage {
	names, _ := json.Marshal(types.FeedbackCategories)
	return json.RawMessage(fmt.Sprintf(schemaDoc, names, len(types.FeedbackCategories)))
}

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(Schema())))
	if err != nil {
		return nil, fmt.Errorf("parse feedback schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add feedback schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// Validate checks raw against the evaluation schema.
func Validate(raw json.RawMessage) error {
	sch, err := compiled()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("decode evaluation: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("evaluation does not match schema: %w", err)
	}
	return nil
}
