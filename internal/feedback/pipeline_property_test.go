package feedback

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/user/intervoice/internal/types"
)

func TestPipelineProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("repeated runs with one feedback id keep one record", prop.ForAll(
		func(runs int, id string, lines []string) bool {
			store := newMemFeedback()
			p := newPipeline(t, fixedGenerator(validEvaluation(70)), store)
			transcript := make([]types.Utterance, len(lines))
			for i, l := range lines {
				transcript[i] = types.Utterance{Role: types.RoleUser, Content: l}
			}
			for i := 0; i < runs; i++ {
				res, err := p.Generate(context.Background(), Request{
					InterviewID: "iv", UserID: "u", Transcript: transcript, FeedbackID: types.FeedbackID(id),
				})
				if err != nil || res.FeedbackID != types.FeedbackID(id) {
					return false
				}
			}
			n, _ := store.CountFeedback(context.Background())
			return n == 1 && store.creates == 0
		},
		gen.IntRange(1, 5),
		gen.Identifier(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("runs without an id create at most one record per pair", prop.ForAll(
		func(pairs []int) bool {
			store := newMemFeedback()
			p := newPipeline(t, fixedGenerator(validEvaluation(70)), store)
			distinct := map[int]bool{}
			for _, k := range pairs {
				distinct[k] = true
				req := Request{
					InterviewID: types.InterviewID(fmt.Sprintf("iv-%d", k)),
					UserID:      "u",
					Transcript:  []types.Utterance{},
				}
				if _, err := p.Generate(context.Background(), req); err != nil {
					return false
				}
			}
			n, _ := store.CountFeedback(context.Background())
			return int(n) == len(distinct) && store.creates == len(distinct)
		},
		gen.SliceOf(gen.IntRange(0, 4)),
	))

	properties.TestingRun(t)
}
