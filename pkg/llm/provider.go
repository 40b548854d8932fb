package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ObjectGenerator produces structured output from a model. Implementations
// handle protocol-specific details such as request formatting,
// authentication, and response parsing.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, req *ObjectRequest) (*ObjectResponse, error)
}

// ObjectGeneratorFunc adapts a function to ObjectGenerator.
type ObjectGeneratorFunc func(ctx context.Context, req *ObjectRequest) (*ObjectResponse, error)

func (f ObjectGeneratorFunc) GenerateObject(ctx context.Context, req *ObjectRequest) (*ObjectResponse, error) {
	return f(ctx, req)
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// ErrNotJSON is returned by ExtractJSON when the model output holds no JSON
// object.
var ErrNotJSON = errors.New("model output is not JSON")

// ExtractJSON returns the JSON object in text, tolerating a surrounding
// markdown code fence.
func ExtractJSON(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" || !json.Valid([]byte(s)) {
		return nil, ErrNotJSON
	}
	return json.RawMessage(s), nil
}
