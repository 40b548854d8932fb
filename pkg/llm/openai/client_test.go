package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/intervoice/pkg/llm"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func TestOpenAIClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or invalid auth header")
		}
		json.NewEncoder(w).Encode(chatReply(`{"totalScore": 80}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "test-key", Model: "gpt-4o-mini"})

	resp, err := client.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		TotalScore int `json:"totalScore"`
	}
	if err := json.Unmarshal(resp.Raw, &got); err != nil || got.TotalScore != 80 {
		t.Errorf("expected totalScore 80, got %s (%v)", resp.Raw, err)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 || resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestGenerateObjectRequestFormat(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"totalScore":{"type":"number"}}}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// base_url includes /v1, client appends /chat/completions
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected path '/v1/chat/completions', got %q", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type 'application/json', got %q", r.Header.Get("Content-Type"))
		}

		body, _ := io.ReadAll(r.Body)
		var reqBody struct {
			Model          string        `json:"model"`
			Messages       []llm.Message `json:"messages"`
			ResponseFormat struct {
				Type       string `json:"type"`
				JSONSchema struct {
					Name   string          `json:"name"`
					Schema json.RawMessage `json:"schema"`
				} `json:"json_schema"`
			} `json:"response_format"`
		}
		if err := json.Unmarshal(body, &reqBody); err != nil {
			t.Fatal(err)
		}
		if reqBody.Model != "gpt-4o" {
			t.Errorf("expected model 'gpt-4o', got %q", reqBody.Model)
		}
		if len(reqBody.Messages) != 2 || reqBody.Messages[0].Role != "system" || reqBody.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", reqBody.Messages)
		}
		if reqBody.ResponseFormat.Type != "json_schema" || reqBody.ResponseFormat.JSONSchema.Name != "feedback" {
			t.Errorf("unexpected response_format: %+v", reqBody.ResponseFormat)
		}
		if !strings.Contains(string(reqBody.ResponseFormat.JSONSchema.Schema), "totalScore") {
			t.Errorf("schema not forwarded: %s", reqBody.ResponseFormat.JSONSchema.Schema)
		}

		json.NewEncoder(w).Encode(chatReply(`{"totalScore":80}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL + "/v1", APIKey: "key", Model: "gpt-4o"})
	resp, err := client.GenerateObject(context.Background(), &llm.ObjectRequest{
		System:     "be strict",
		Prompt:     "evaluate",
		SchemaName: "feedback",
		Schema:     schema,
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Raw) != `{"totalScore":80}` {
		t.Errorf("unexpected object: %s", resp.Raw)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestGenerateObjectRejectsProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatReply("Sorry, I can't do that."))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "key", Model: "gpt-4o"})
	_, err := client.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "x"})
	if !errors.Is(err, llm.ErrNotJSON) {
		t.Errorf("expected ErrNotJSON, got %v", err)
	}
}

func TestOpenAIClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "key", Model: "gpt-4o"})
	_, err := client.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Errorf("expected status 429 error, got %v", err)
	}
}

func TestOpenAIClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := New(&llm.Config{BaseURL: server.URL, APIKey: "key", Model: "gpt-4o"})
	if _, err := client.GenerateObject(context.Background(), &llm.ObjectRequest{Prompt: "x"}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestNewDefaultsBaseURL(t *testing.T) {
	cfg := &llm.Config{APIKey: "k"}
	New(cfg)
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
}
