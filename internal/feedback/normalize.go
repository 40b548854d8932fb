package feedback

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/user/intervoice/internal/types"
)

// Evaluation is the structured result returned by the evaluator.
type Evaluation struct {
	TotalScore          float64           `json:"totalScore"`
	CategoryScores      []evaluationScore `json:"categoryScores"`
	Strengths           []string          `json:"strengths"`
	AreasForImprovement []string          `json:"areasForImprovement"`
	FinalAssessment     string            `json:"finalAssessment"`
}

type evaluationScore struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Normalize validates raw and folds it into a record body: scores are
// rounded and clamped to 0..100, categories follow the canonical order,
// and blank list entries are dropped.
func Normalize(raw json.RawMessage) (*types.FeedbackRecord, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var ev Evaluation
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	byName := make(map[string]evaluationScore, len(ev.CategoryScores))
	for _, cs := range ev.CategoryScores {
		key := strings.ToLower(strings.TrimSpace(cs.Name))
		if _, dup := byName[key]; dup {
			return nil, fmt.Errorf("category %q scored twice", cs.Name)
		}
		byName[key] = cs
	}
	scores := make([]types.CategoryScore, 0, len(types.FeedbackCategories))
	for _, name := range types.FeedbackCategories {
		cs, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("category %q missing", name)
		}
		scores = append(scores, types.CategoryScore{
			Name:    name,
			Score:   clampScore(cs.Score),
			Comment: strings.TrimSpace(cs.Comment),
		})
	}

	return &types.FeedbackRecord{
		TotalScore:          clampScore(ev.TotalScore),
		CategoryScores:      scores,
		Strengths:           compact(ev.Strengths),
		AreasForImprovement: compact(ev.AreasForImprovement),
		FinalAssessment:     strings.TrimSpace(ev.FinalAssessment),
	}, nil
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Min(100, math.Max(0, v))))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
