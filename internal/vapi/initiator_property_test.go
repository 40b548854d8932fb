package vapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// scripted builds a doer that accepts only the request at index acceptAt.
func scripted(n, acceptAt int) *fakeDoer {
	doer := &fakeDoer{}
	for i := 0; i < n; i++ {
		if i == acceptAt {
			doer.responses = append(doer.responses, reply(http.StatusOK, `{"id":"call"}`))
		} else {
			doer.responses = append(doer.responses, reply(http.StatusUnprocessableEntity, `{"message":"bad shape"}`))
		}
	}
	return doer
}

func TestInitiateStopsAtFirstAcceptance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	shapes := DefaultShapes()
	n := len(shapes)

	properties.Property("attempts end at the first accepting response", prop.ForAll(
		func(acceptAt int) bool {
			doer := scripted(n, acceptAt)
			in := New("http://provider", "tok", WithHTTPClient(doer))
			handle, err := in.Initiate(context.Background(), "wf", nil)
			if err != nil {
				return false
			}
			if len(handle.Attempts) != acceptAt+1 || int(doer.calls.Load()) != acceptAt+1 {
				return false
			}
			return handle.UsedShape == shapes[acceptAt].Name
		},
		gen.IntRange(0, n-1),
	))

	properties.Property("exhaustion records one attempt per candidate in order", prop.ForAll(
		func(k int) bool {
			subset := shapes[:k]
			doer := scripted(k, -1)
			in := New("http://provider", "tok", WithHTTPClient(doer), WithShapes(subset))
			_, err := in.Initiate(context.Background(), "wf", map[string]any{"k": k})
			negErr, ok := err.(*NegotiationError)
			if !ok || len(negErr.Attempts) != k {
				return false
			}
			for i, a := range negErr.Attempts {
				if a.Name != subset[i].Name {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, n),
	))

	properties.TestingRun(t)
}
