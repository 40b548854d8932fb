// Package gemini implements llm.ObjectGenerator on the Google Gen AI SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/user/intervoice/pkg/llm"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.0-flash-001"

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client generates structured output with a Gemini model.
type Client struct {
	models contentGenerator
	config *llm.Config
}

// New creates a client for the Gemini API.
func New(ctx context.Context, config *llm.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newClient(client.Models, config), nil
}

func newClient(models contentGenerator, config *llm.Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Client{models: models, config: config}
}

// GenerateObject asks the model for JSON output constrained by the request
// schema.
func (c *Client) GenerateObject(ctx context.Context, req *llm.ObjectRequest) (*llm.ObjectResponse, error) {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Schema) > 0 {
		schema, err := ConvertSchema(req.Schema)
		if err != nil {
			return nil, err
		}
		gc.ResponseSchema = schema
	}
	if c.config.Temperature != 0 {
		gc.Temperature = genai.Ptr(c.config.Temperature)
	}
	if c.config.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(c.config.MaxTokens)
	}

	resp, err := c.models.GenerateContent(ctx, c.config.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	raw, err := llm.ExtractJSON(resp.Text())
	if err != nil {
		return nil, err
	}
	out := &llm.ObjectResponse{Raw: raw}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return out, nil
}

type schemaNode struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Enum        []string               `json:"enum"`
	Properties  map[string]*schemaNode `json:"properties"`
	Required    []string               `json:"required"`
	Items       *schemaNode            `json:"items"`
	Minimum     *float64               `json:"minimum"`
	Maximum     *float64               `json:"maximum"`
	MinItems    *int64                 `json:"minItems"`
	MaxItems    *int64                 `json:"maxItems"`
}

// ConvertSchema translates the JSON Schema subset Gemini understands into a
// genai.Schema. Keywords outside that subset are dropped.
func ConvertSchema(doc json.RawMessage) (*genai.Schema, error) {
	var root schemaNode
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("parse response schema: %w", err)
	}
	return root.toGenai(), nil
}

func (n *schemaNode) toGenai() *genai.Schema {
	if n == nil {
		return nil
	}
	s := &genai.Schema{
		Type:        genai.Type(strings.ToUpper(n.Type)),
		Description: n.Description,
		Enum:        n.Enum,
		Required:    n.Required,
		Items:       n.Items.toGenai(),
		Minimum:     n.Minimum,
		Maximum:     n.Maximum,
		MinItems:    n.MinItems,
		MaxItems:    n.MaxItems,
	}
	if len(n.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(n.Properties))
		for name, p := range n.Properties {
			s.Properties[name] = p.toGenai()
		}
	}
	return s
}
