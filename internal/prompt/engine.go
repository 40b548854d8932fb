// internal/prompt/engine.go
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/intervoice/internal/types"
)

// Counter measures the token cost of a piece of text.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with an OpenAI BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter selects the encoding for model, falling back to
// cl100k_base for models tiktoken does not know (Gemini among them).
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Prompt is a rendered evaluation request.
type Prompt struct {
	System string
	User   string
	// Omitted is the number of leading transcript lines dropped to fit the budget.
	Omitted int
}

// Engine renders token-budgeted evaluation prompts from a transcript.
type Engine struct {
	counter   Counter
	maxTokens int
	system    *template.Template
	user      *template.Template
}

// New creates an engine. A nil counter or a non-positive maxTokens disables
// budgeting and the whole transcript is always rendered.
func New(counter Counter, maxTokens int) (*Engine, error) {
	sys, err := template.New("system").Parse(DefaultSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	user, err := template.New("user").Parse(DefaultUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("parse user prompt: %w", err)
	}
	return &Engine{counter: counter, maxTokens: maxTokens, system: sys, user: user}, nil
}

// RenderLine formats one utterance the way transcripts are shown to the
// evaluator.
func RenderLine(u types.Utterance) string {
	return fmt.Sprintf("- %s: %s\n", u.Role, u.Content)
}

// RenderTranscript renders every utterance in order.
func RenderTranscript(utts []types.Utterance) string {
	var b strings.Builder
	for _, u := range utts {
		b.WriteString(RenderLine(u))
	}
	return b.String()
}

type promptData struct {
	Transcript string
	Omitted    int
	Categories []string
}

// Build renders the system and user prompts for utts. When the transcript
// exceeds the budget the earliest lines are dropped and the most recent
// ones kept.
func (e *Engine) Build(utts []types.Utterance) (*Prompt, error) {
	kept := e.fit(utts)
	data := promptData{
		Transcript: RenderTranscript(kept),
		Omitted:    len(utts) - len(kept),
		Categories: types.FeedbackCategories,
	}

	var sys, user strings.Builder
	if err := e.system.Execute(&sys, data); err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}
	if err := e.user.Execute(&user, data); err != nil {
		return nil, fmt.Errorf("render user prompt: %w", err)
	}
	return &Prompt{System: sys.String(), User: user.String(), Omitted: data.Omitted}, nil
}

func (e *Engine) fit(utts []types.Utterance) []types.Utterance {
	if e.counter == nil || e.maxTokens <= 0 {
		return utts
	}
	used := 0
	start := len(utts)
	for i := len(utts) - 1; i >= 0; i-- {
		n := e.counter.Count(RenderLine(utts[i]))
		if used+n > e.maxTokens {
			break
		}
		used += n
		start = i
	}
	return utts[start:]
}
