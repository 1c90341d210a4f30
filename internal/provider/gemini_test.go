package provider

import (
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

func TestConvertMessages(t *testing.T) {
	messages := []*schema.Message{
		{Role: schema.System, Content: "You are a helpful assistant."},
		{Role: schema.User, Content: "Find emails from Sarah"},
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				ID: "call_search_emails_0",
				Function: schema.FunctionCall{
					Name:      "search_emails",
					Arguments: `{"query":"from:sarah"}`,
				},
			}},
		},
		ToolResultsMessage([]ToolResult{{
			Name:    "search_emails",
			Content: json.RawMessage(`{"totalCount":2}`),
		}}),
	}

	contents, system := convertMessages(messages)

	if system != "You are a helpful assistant." {
		t.Errorf("unexpected system instruction: %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	if contents[0].Role != genai.RoleUser || contents[0].Parts[0].Text != "Find emails from Sarah" {
		t.Errorf("unexpected user content: %+v", contents[0])
	}

	if contents[1].Role != genai.RoleModel {
		t.Errorf("expected model role for assistant message, got %q", contents[1].Role)
	}
	fc := contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "search_emails" || fc.Args["query"] != "from:sarah" {
		t.Errorf("unexpected function call: %+v", fc)
	}

	if contents[2].Role != genai.RoleUser {
		t.Errorf("expected user role for tool results, got %q", contents[2].Role)
	}
	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "search_emails" {
		t.Fatalf("unexpected function response: %+v", fr)
	}
	if fr.Response["totalCount"] != float64(2) {
		t.Errorf("unexpected response payload: %+v", fr.Response)
	}
}

func TestConvertMessagesMultipleToolResults(t *testing.T) {
	msg := ToolResultsMessage([]ToolResult{
		{Name: "get_or_create_label", Content: json.RawMessage(`{"name":"Receipts"}`)},
		{Name: "list_labels", Content: json.RawMessage(`{"count":4}`), IsError: false},
	})

	contents, _ := convertMessages([]*schema.Message{msg})
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	if len(contents[0].Parts) != 2 {
		t.Fatalf("expected 2 function response parts, got %d", len(contents[0].Parts))
	}
	if contents[0].Parts[1].FunctionResponse.Name != "list_labels" {
		t.Errorf("unexpected second response: %+v", contents[0].Parts[1].FunctionResponse)
	}
}

func TestConvertMessagesNonJSONToolResult(t *testing.T) {
	msg := ToolResultsMessage([]ToolResult{{
		Name:    "send_email",
		Content: json.RawMessage(`"sent"`),
		IsError: true,
	}})

	contents, _ := convertMessages([]*schema.Message{msg})
	fr := contents[0].Parts[0].FunctionResponse
	if fr.Response["result"] == nil {
		t.Errorf("expected non-object content wrapped in result field, got %+v", fr.Response)
	}
	if fr.Response["error"] != true {
		t.Errorf("expected error flag, got %+v", fr.Response)
	}
}

func TestConvertResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "Let me check. "},
					{FunctionCall: &genai.FunctionCall{
						Name: "search_emails",
						Args: map[string]any{"query": "is:unread"},
					}},
				},
			},
		}},
	}

	msg, err := convertResponse(resp)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if msg.Role != schema.Assistant {
		t.Errorf("expected assistant role, got %q", msg.Role)
	}
	if msg.Content != "Let me check. " {
		t.Errorf("unexpected content: %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	tc := msg.ToolCalls[0]
	if tc.Function.Name != "search_emails" {
		t.Errorf("unexpected tool name: %q", tc.Function.Name)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil || args["query"] != "is:unread" {
		t.Errorf("unexpected arguments: %q", tc.Function.Arguments)
	}
	if tc.ID == "" {
		t.Error("expected generated tool call ID")
	}
}

func TestConvertResponseEmpty(t *testing.T) {
	if _, err := convertResponse(nil); err == nil {
		t.Error("expected error for nil response")
	}
	if _, err := convertResponse(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for response without candidates")
	}
}

func TestToGeminiSchema(t *testing.T) {
	var schemaMap map[string]any
	raw := `{
		"type": "object",
		"description": "search parameters",
		"properties": {
			"query": {"type": "string", "description": "Gmail search query"},
			"maxResults": {"type": "integer"},
			"scope": {"type": "string", "enum": ["inbox", "all"]}
		},
		"required": ["query"]
	}`
	if err := json.Unmarshal([]byte(raw), &schemaMap); err != nil {
		t.Fatal(err)
	}

	s := toGeminiSchema(schemaMap)
	if s.Type != genai.TypeObject {
		t.Errorf("expected OBJECT type, got %q", s.Type)
	}
	if s.Description != "search parameters" {
		t.Errorf("unexpected description: %q", s.Description)
	}
	if len(s.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(s.Properties))
	}
	if s.Properties["query"].Type != genai.TypeString {
		t.Errorf("unexpected query type: %q", s.Properties["query"].Type)
	}
	if got := s.Properties["scope"].Enum; len(got) != 2 || got[0] != "inbox" {
		t.Errorf("unexpected enum: %v", got)
	}
	if len(s.Required) != 1 || s.Required[0] != "query" {
		t.Errorf("unexpected required: %v", s.Required)
	}
}

func TestConvertToolsSkipsInvalidSchema(t *testing.T) {
	tools := convertTools([]ToolInfo{
		{Name: "bad", Parameters: json.RawMessage(`{not json`)},
		{Name: "good", Description: "ok", Parameters: json.RawMessage(`{"type":"object"}`)},
	})
	if len(tools) != 1 || len(tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("expected 1 declaration, got %+v", tools)
	}
	if tools[0].FunctionDeclarations[0].Name != "good" {
		t.Errorf("unexpected declaration: %+v", tools[0].FunctionDeclarations[0])
	}
}
