package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/user/intervoice/pkg/llm"
)

type fakeModels struct {
	model  string
	config *genai.GenerateContentConfig
	prompt string
	text   string
	err    error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 8,
			TotalTokenCount:      20,
		},
	}, nil
}

const testSchema = `{
  "type": "object",
  "properties": {
    "totalScore": {"type": "number", "minimum": 0, "maximum": 100},
    "strengths": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "tier": {"type": "string", "enum": ["low", "high"]}
  },
  "required": ["totalScore"],
  "additionalProperties": false
}`

func TestGenerateObject(t *testing.T) {
	fm := &fakeModels{text: `{"totalScore": 72}`}
	c := newClient(fm, &llm.Config{Temperature: 0.2})

	resp, err := c.GenerateObject(context.Background(), &llm.ObjectRequest{
		System: "be strict",
		Prompt: "evaluate this",
		Schema: json.RawMessage(testSchema),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalScore": 72}`, string(resp.Raw))
	assert.Equal(t, llm.Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20}, resp.Usage)

	assert.Equal(t, DefaultModel, fm.model)
	assert.Equal(t, "evaluate this", fm.prompt)
	assert.Equal(t, "application/json", fm.config.ResponseMIMEType)
	require.NotNil(t, fm.config.SystemInstruction)
	assert.Equal(t, "be strict", fm.config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, fm.config.Temperature)
	assert.InDelta(t, 0.2, *fm.config.Temperature, 1e-6)
	require.NotNil(t, fm.config.ResponseSchema)
	assert.Equal(t, genai.TypeObject, fm.config.ResponseSchema.Type)
}

func TestGenerateObjectErrors(t *testing.T) {
	c := newClient(&fakeModels{err: errors.New("quota")}, &llm.Config{Model: "gemini-x"})
	_, err := c.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "quota")

	c = newClient(&fakeModels{text: "no json here"}, &llm.Config{Model: "gemini-x"})
	_, err = c.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "x"})
	assert.ErrorIs(t, err, llm.ErrNotJSON)

	_, err = c.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "x", Schema: json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestConvertSchema(t *testing.T) {
	s, err := ConvertSchema(json.RawMessage(testSchema))
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"totalScore"}, s.Required)

	score := s.Properties["totalScore"]
	require.NotNil(t, score)
	assert.Equal(t, genai.TypeNumber, score.Type)
	require.NotNil(t, score.Maximum)
	assert.Equal(t, 100.0, *score.Maximum)

	strengths := s.Properties["strengths"]
	assert.Equal(t, genai.TypeArray, strengths.Type)
	assert.Equal(t, genai.TypeString, strengths.Items.Type)
	require.NotNil(t, strengths.MinItems)
	assert.Equal(t, int64(1), *strengths.MinItems)

	assert.Equal(t, []string{"low", "high"}, s.Properties["tier"].Enum)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), &llm.Config{})
	assert.Error(t, err)
}
