package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/echomail-ai/echomail/internal/logging"
)

// Gemini is a Provider backed by the Google Gen AI SDK. It is safe for
// concurrent use; each Generate call is an independent API request.
type Gemini struct {
	client       *genai.Client
	defaultModel string
}

// GeminiConfig holds configuration for creating a Gemini provider.
type GeminiConfig struct {
	// APIKey is the Google AI API key (required).
	APIKey string

	// DefaultModel is used when GenerateRequest.Model is empty.
	// Default: "gemini-2.0-flash"
	DefaultModel string
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, config GeminiConfig) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &Gemini{
		client:       client,
		defaultModel: config.DefaultModel,
	}, nil
}

// Generate sends the conversation to Gemini and returns the assistant
// message, including any function calls the model requested.
func (g *Gemini) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	contents, system := convertMessages(req.Messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.MaxTokens > 0 {
		maxTokens := min(req.MaxTokens, math.MaxInt32)
		config.MaxOutputTokens = int32(maxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if len(req.Tools) > 0 {
		config.Tools = convertTools(req.Tools)
	}

	logging.Debug().
		Str("model", model).
		Int("messages", len(contents)).
		Int("tools", len(req.Tools)).
		Msg("calling gemini")

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	msg, err := convertResponse(resp)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Message: msg}, nil
}

// convertMessages converts the conversation history to Gemini contents.
// System-role messages are collected into the returned system instruction
// rather than the content list.
func convertMessages(messages []*schema.Message) ([]*genai.Content, string) {
	var result []*genai.Content
	var system strings.Builder

	for _, msg := range messages {
		if msg == nil {
			continue
		}

		switch msg.Role {
		case schema.System:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
			continue

		case schema.Assistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = make(map[string]any)
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: tc.Function.Name,
						Args: args,
					},
				})
			}
			if len(content.Parts) > 0 {
				result = append(result, content)
			}

		case schema.Tool:
			// Function responses go back on the user side, one part per
			// tool invocation.
			content := &genai.Content{Role: genai.RoleUser}
			for _, tr := range DecodeToolResults(msg) {
				var response map[string]any
				if err := json.Unmarshal(tr.Content, &response); err != nil {
					response = map[string]any{"result": string(tr.Content)}
				}
				if tr.IsError {
					response["error"] = true
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     tr.Name,
						Response: response,
					},
				})
			}
			if len(content.Parts) > 0 {
				result = append(result, content)
			}

		default: // schema.User
			if msg.Content == "" {
				continue
			}
			result = append(result, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return result, system.String()
}

// convertResponse converts a Gemini response into an assistant message.
func convertResponse(resp *genai.GenerateContentResponse) (*schema.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}

	msg := &schema.Message{Role: schema.Assistant}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return msg, nil
	}

	var text strings.Builder
	for i, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			argsJSON, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				argsJSON = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID: fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, i),
				Function: schema.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}
	msg.Content = text.String()

	return msg, nil
}

// convertTools converts tool definitions to Gemini function declarations.
func convertTools(tools []ToolInfo) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Parameters, &schemaMap); err != nil {
			logging.Warn().Str("tool", tool.Name).Err(err).Msg("skipping tool with invalid schema")
			continue
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toGeminiSchema(schemaMap),
		})
	}

	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema converts a JSON Schema map to Gemini's Schema type.
func toGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}

	out := &genai.Schema{}

	if t, ok := schemaMap["type"].(string); ok {
		out.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		out.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}

	return out
}
