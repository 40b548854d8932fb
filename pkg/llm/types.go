package llm

import "encoding/json"

// Message represents a chat message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from an LLM provider.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ObjectRequest asks a model for a JSON object conforming to Schema.
type ObjectRequest struct {
	System     string
	Prompt     string
	SchemaName string
	// Schema is a JSON Schema document describing the expected object.
	Schema json.RawMessage
}

// ObjectResponse carries the model's JSON object undecoded.
type ObjectResponse struct {
	Raw   json.RawMessage
	Usage Usage
}
