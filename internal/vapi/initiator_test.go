package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeDoer answers each request with the next scripted response.
type fakeDoer struct {
	calls     atomic.Int32
	responses []func(req *http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	i := int(f.calls.Add(1)) - 1
	if i >= len(f.responses) {
		return jsonResponse(http.StatusBadRequest, `{"message":"unexpected"}`), nil
	}
	return f.responses[i](req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func reply(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) { return jsonResponse(status, body), nil }
}

func TestInitiateSecondShapeAccepted(t *testing.T) {
	var seen []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call/web" {
			t.Errorf("expected path /call/web, got %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer srv-token" {
			t.Errorf("missing or invalid auth header")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		seen = append(seen, body)
		w.Header().Set("Content-Type", "application/json")
		if _, ok := body["variableValues"]; ok {
			w.Write([]byte(`{"id":"call-123","webCallUrl":"https://example.daily.co/abc"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":["property variables should not exist"]}`))
	}))
	defer server.Close()

	in := New(server.URL, "srv-token")
	handle, err := in.Initiate(context.Background(), "wf1", map[string]any{"username": "Al", "userid": "u1"})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if handle.UsedShape != "variableValues" {
		t.Errorf("expected usedShape variableValues, got %q", handle.UsedShape)
	}
	if handle.CallID != "call-123" {
		t.Errorf("expected call id call-123, got %q", handle.CallID)
	}
	if len(handle.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(handle.Attempts))
	}
	if handle.Attempts[0].Name != "variables" || handle.Attempts[0].Status != http.StatusBadRequest {
		t.Errorf("unexpected first attempt: %+v", handle.Attempts[0])
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	if seen[0]["workflowId"] != "wf1" {
		t.Errorf("expected workflowId in body, got %v", seen[0])
	}
	vars, ok := seen[1]["variableValues"].(map[string]any)
	if !ok || vars["username"] != "Al" {
		t.Errorf("expected variableValues envelope, got %v", seen[1])
	}
}

func TestInitiateMissingWorkflow(t *testing.T) {
	doer := &fakeDoer{}
	in := New("http://unused", "srv-token", WithHTTPClient(doer))

	_, err := in.Initiate(context.Background(), "", nil)
	if !errors.Is(err, ErrMissingWorkflow) {
		t.Fatalf("expected ErrMissingWorkflow, got %v", err)
	}
	if doer.calls.Load() != 0 {
		t.Errorf("expected no network attempt, got %d", doer.calls.Load())
	}
}

func TestInitiateMissingCredential(t *testing.T) {
	doer := &fakeDoer{}
	in := New("http://unused", "", WithHTTPClient(doer))

	_, err := in.Initiate(context.Background(), "wf1", nil)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if errors.Is(err, ErrAllShapesRejected) {
		t.Error("credential error must be distinct from negotiation exhaustion")
	}
	if doer.calls.Load() != 0 {
		t.Errorf("expected no network attempt, got %d", doer.calls.Load())
	}
}

func TestInitiateTransportErrorContinues(t *testing.T) {
	doer := &fakeDoer{responses: []func(*http.Request) (*http.Response, error){
		func(*http.Request) (*http.Response, error) { return nil, errors.New("connection reset by peer") },
		reply(http.StatusCreated, `{"id":"call-9"}`),
	}}
	in := New("http://provider", "tok", WithHTTPClient(doer))

	handle, err := in.Initiate(context.Background(), "wf1", nil)
	if err != nil {
		t.Fatalf("expected success after transport error, got %v", err)
	}
	if handle.Attempts[0].Status != StatusTransportError {
		t.Errorf("expected status 0 for transport failure, got %d", handle.Attempts[0].Status)
	}
	if !strings.Contains(handle.Attempts[0].Body.(string), "connection reset") {
		t.Errorf("expected transport error text, got %v", handle.Attempts[0].Body)
	}
	if handle.UsedShape != "variableValues" {
		t.Errorf("expected second shape, got %q", handle.UsedShape)
	}
}

func TestInitiateAllRejected(t *testing.T) {
	doer := &fakeDoer{}
	in := New("http://provider", "tok", WithHTTPClient(doer))

	_, err := in.Initiate(context.Background(), "wf1", map[string]any{"a": 1})
	var negErr *NegotiationError
	if !errors.As(err, &negErr) {
		t.Fatalf("expected NegotiationError, got %v", err)
	}
	if !errors.Is(err, ErrAllShapesRejected) {
		t.Error("expected errors.Is ErrAllShapesRejected")
	}
	names := DefaultShapes()
	if len(negErr.Attempts) != len(names) {
		t.Fatalf("expected %d attempts, got %d", len(names), len(negErr.Attempts))
	}
	for i, a := range negErr.Attempts {
		if a.Name != names[i].Name {
			t.Errorf("attempt %d: expected %s, got %s", i, names[i].Name, a.Name)
		}
	}
	if negErr.Hint == "" {
		t.Error("expected a hint")
	}
}

func TestInitiateHTMLBodyBecomesMarkdown(t *testing.T) {
	doer := &fakeDoer{responses: []func(*http.Request) (*http.Response, error){
		func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
				Body:       io.NopCloser(strings.NewReader("<html><body><h1>Bad Gateway</h1></body></html>")),
			}, nil
		},
	}}
	in := New("http://provider", "tok", WithHTTPClient(doer), WithShapes(DefaultShapes()[:1]))

	_, err := in.Initiate(context.Background(), "wf1", nil)
	var negErr *NegotiationError
	if !errors.As(err, &negErr) {
		t.Fatalf("expected NegotiationError, got %v", err)
	}
	body, ok := negErr.Attempts[0].Body.(string)
	if !ok {
		t.Fatalf("expected string body, got %T", negErr.Attempts[0].Body)
	}
	if strings.Contains(body, "<h1>") || !strings.Contains(body, "Bad Gateway") {
		t.Errorf("expected markdown body, got %q", body)
	}
}

func TestInitiatePromotesAcceptedShape(t *testing.T) {
	doer := &fakeDoer{responses: []func(*http.Request) (*http.Response, error){
		reply(http.StatusBadRequest, `{}`),
		reply(http.StatusBadRequest, `{}`),
		reply(http.StatusOK, `{"id":"c1"}`),
		reply(http.StatusOK, `{"id":"c2"}`),
	}}
	in := New("http://provider", "tok", WithHTTPClient(doer), WithPromoteAccepted(true))

	if _, err := in.Initiate(context.Background(), "wf1", nil); err != nil {
		t.Fatal(err)
	}
	order := in.Order()
	if order[0] != "spread" || order[1] != "variables" || order[2] != "variableValues" {
		t.Fatalf("expected spread promoted to front, got %v", order)
	}

	handle, err := in.Initiate(context.Background(), "wf1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if handle.UsedShape != "spread" || len(handle.Attempts) != 1 {
		t.Errorf("expected promoted shape to be tried first, got %s after %d attempts", handle.UsedShape, len(handle.Attempts))
	}
}

func TestShapesRejectsUnknownAndDuplicates(t *testing.T) {
	if _, err := Shapes([]string{"variables", "bogus"}); err == nil {
		t.Error("expected error for unknown shape")
	}
	if _, err := Shapes([]string{"spread", "spread"}); err == nil {
		t.Error("expected error for duplicate shape")
	}
	shapes, err := Shapes([]string{"workflowObject"})
	if err != nil {
		t.Fatal(err)
	}
	body := shapes[0].Build("wf", map[string]any{"k": "v"})
	wf, ok := body["workflow"].(map[string]any)
	if !ok || wf["id"] != "wf" || body["type"] != "workflow" {
		t.Errorf("unexpected workflowObject body: %v", body)
	}
}

func TestSpreadShapeKeepsWorkflowID(t *testing.T) {
	shapes, _ := Shapes([]string{"spread"})
	body := shapes[0].Build("wf", map[string]any{"workflowId": "spoofed", "username": "Al"})
	if body["workflowId"] != "wf" {
		t.Errorf("expected workflowId to win over variables, got %v", body["workflowId"])
	}
	if body["username"] != "Al" {
		t.Errorf("expected variables spread at top level, got %v", body)
	}
}
