// Package vapi creates web calls against the voice provider. The provider's
// accepted request envelope is not stable, so the Initiator tries a list of
// candidate shapes in order and reports every attempt.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://api.vapi.ai"
	webCallPath     = "/call/web"
	maxResponseBody = 1 << 20
	// StatusTransportError is recorded when the request never got a response.
	StatusTransportError = 0
)

// Doer is the subset of *http.Client the initiator needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Attempt is the diagnostic record of one candidate submission.
type Attempt struct {
	Name    string         `json:"name"`
	Request map[string]any `json:"request,omitempty"`
	Status  int            `json:"status"`
	Body    any            `json:"body"`
}

// Handle is returned on the first accepted attempt.
type Handle struct {
	CallID    string          `json:"callId,omitempty"`
	Call      json.RawMessage `json:"call"`
	UsedShape string          `json:"usedShape"`
	Attempts  []Attempt       `json:"attempts"`
}

type Initiator struct {
	baseURL string
	token   string
	client  Doer
	limiter *rate.Limiter
	promote bool

	mu     sync.Mutex
	shapes []Shape
}

type Option func(*Initiator)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(c Doer) Option {
	return func(in *Initiator) { in.client = c }
}

// WithShapes sets the candidate list and its priority order.
func WithShapes(shapes []Shape) Option {
	return func(in *Initiator) { in.shapes = append([]Shape(nil), shapes...) }
}

// WithAttemptRate paces attempts to at most perSecond submissions.
// A non-positive rate disables pacing.
func WithAttemptRate(perSecond float64) Option {
	return func(in *Initiator) {
		if perSecond <= 0 {
			in.limiter = nil
			return
		}
		in.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithPromoteAccepted moves an accepted shape to the front of the list so
// later calls try it first.
func WithPromoteAccepted(on bool) Option {
	return func(in *Initiator) { in.promote = on }
}

// New creates an Initiator. An empty baseURL selects the public endpoint.
func New(baseURL, serverToken string, opts ...Option) *Initiator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	in := &Initiator{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   serverToken,
		client:  &http.Client{Timeout: 30 * time.Second},
		shapes:  DefaultShapes(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Order returns the current candidate names in priority order.
func (in *Initiator) Order() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	names := make([]string, len(in.shapes))
	for i, s := range in.shapes {
		names[i] = s.Name
	}
	return names
}

// Initiate submits candidate shapes sequentially and returns on the first
// 2xx response. Transport failures are recorded with status 0 and the loop
// moves on to the next candidate.
func (in *Initiator) Initiate(ctx context.Context, workflowID string, vars map[string]any) (*Handle, error) {
	if workflowID == "" {
		return nil, ErrMissingWorkflow
	}
	if in.token == "" {
		return nil, ErrMissingCredential
	}
	if vars == nil {
		vars = map[string]any{}
	}

	in.mu.Lock()
	shapes := append([]Shape(nil), in.shapes...)
	in.mu.Unlock()

	attempts := make([]Attempt, 0, len(shapes))
	for i, shape := range shapes {
		if in.limiter != nil {
			if err := in.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("negotiate call: %w", err)
			}
		}

		body := shape.Build(workflowID, vars)
		attempt, raw := in.submit(ctx, shape.Name, body)
		attempts = append(attempts, attempt)
		slog.Debug("call initiation attempt",
			"shape", shape.Name,
			"status", attempt.Status,
			"workflow_id", workflowID,
		)

		if attempt.Status >= 200 && attempt.Status < 300 {
			if in.promote && i > 0 {
				in.promoteShape(shape.Name)
			}
			return &Handle{
				CallID:    callID(raw),
				Call:      callPayload(raw),
				UsedShape: shape.Name,
				Attempts:  attempts,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("negotiate call: %w", ctx.Err())
		}
	}

	slog.Warn("all call initiation shapes rejected", "workflow_id", workflowID, "attempts", len(attempts))
	return nil, &NegotiationError{
		Attempts: attempts,
		Hint: fmt.Sprintf("the voice provider rejected all %d request shapes; check the workflow id and adjust vapi.shape_order",
			len(attempts)),
	}
}

func (in *Initiator) submit(ctx context.Context, name string, body map[string]any) (Attempt, []byte) {
	attempt := Attempt{Name: name, Request: body}

	payload, err := json.Marshal(body)
	if err != nil {
		attempt.Status = StatusTransportError
		attempt.Body = fmt.Sprintf("marshal request: %v", err)
		return attempt, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.baseURL+webCallPath, bytes.NewReader(payload))
	if err != nil {
		attempt.Status = StatusTransportError
		attempt.Body = fmt.Sprintf("create request: %v", err)
		return attempt, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+in.token)

	resp, err := in.client.Do(req)
	if err != nil {
		attempt.Status = StatusTransportError
		attempt.Body = err.Error()
		return attempt, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	attempt.Status = resp.StatusCode
	if err != nil {
		attempt.Body = fmt.Sprintf("read response: %v", err)
		return attempt, nil
	}
	attempt.Body = decodeBody(resp.Header.Get("Content-Type"), raw)
	return attempt, raw
}

func (in *Initiator) promoteShape(name string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i, s := range in.shapes {
		if s.Name != name {
			continue
		}
		if i == 0 {
			return
		}
		copy(in.shapes[1:i+1], in.shapes[:i])
		in.shapes[0] = s
		slog.Info("promoted accepted request shape", "shape", name)
		return
	}
}

// decodeBody keeps JSON bodies structured and turns HTML error pages into
// markdown so they stay readable in attempt diagnostics.
func decodeBody(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return ""
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "text/html" {
		if md, err := htmltomarkdown.ConvertString(string(raw)); err == nil {
			return strings.TrimSpace(md)
		}
	}
	return string(raw)
}

func callID(raw []byte) string {
	var partial struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return ""
	}
	return partial.ID
}

func callPayload(raw []byte) json.RawMessage {
	switch {
	case len(raw) == 0:
		return json.RawMessage("{}")
	case json.Valid(raw):
		return json.RawMessage(raw)
	}
	b, _ := json.Marshal(string(raw))
	return b
}
