package session

import "github.com/user/intervoice/internal/types"

// Transcript is the append-only utterance log of one call. It is not safe
// for concurrent use; the owning Machine serializes access.
type Transcript struct {
	utts []types.Utterance
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(u types.Utterance) {
	t.utts = append(t.utts, u)
}

// Latest returns the content of the most recent utterance, or "" when the
// transcript is empty.
func (t *Transcript) Latest() string {
	if len(t.utts) == 0 {
		return ""
	}
	return t.utts[len(t.utts)-1].Content
}

// Utterances returns a copy of the log in arrival order.
func (t *Transcript) Utterances() []types.Utterance {
	out := make([]types.Utterance, len(t.utts))
	copy(out, t.utts)
	return out
}

func (t *Transcript) Len() int { return len(t.utts) }
