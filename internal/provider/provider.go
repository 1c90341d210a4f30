package provider

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/schema"
)

// Provider generates a single assistant message for a conversation.
// Implementations must be safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
}

// GenerateRequest represents one model call. The system prompt travels as
// a leading system-role message in Messages.
type GenerateRequest struct {
	Model       string            `json:"model,omitempty"`
	Messages    []*schema.Message `json:"messages"`
	Tools       []ToolInfo        `json:"tools,omitempty"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// GenerateResult holds the assistant message produced by the model. The
// message carries plain text, tool calls, or both.
type GenerateResult struct {
	Message *schema.Message `json:"message"`
}

// ToolInfo represents a tool definition for the LLM.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

func (f Func) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	return f(ctx, req)
}

// ToolResult is one tool invocation outcome. A turn's results are encoded
// together into a single tool-role message so the conversation history
// stays one entry per round of tool execution.
type ToolResult struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
	IsError bool            `json:"isError,omitempty"`
}

// ToolResultsMessage encodes tool outcomes into a single tool-role message.
func ToolResultsMessage(results []ToolResult) *schema.Message {
	data, err := json.Marshal(results)
	if err != nil {
		data = []byte("[]")
	}
	return &schema.Message{
		Role:    schema.Tool,
		Content: string(data),
	}
}

// DecodeToolResults decodes a tool-role message produced by
// ToolResultsMessage. A message that does not carry the encoded form is
// returned as a single unnamed result.
func DecodeToolResults(msg *schema.Message) []ToolResult {
	var results []ToolResult
	if err := json.Unmarshal([]byte(msg.Content), &results); err == nil {
		return results
	}
	content, _ := json.Marshal(msg.Content)
	return []ToolResult{{Name: msg.Name, Content: content}}
}
