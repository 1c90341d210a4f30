package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestToolResultsRoundTrip(t *testing.T) {
	results := []ToolResult{
		{Name: "search_emails", Content: json.RawMessage(`{"totalCount":3}`)},
		{Name: "send_email", Content: json.RawMessage(`{"action":"sent"}`), IsError: true},
	}

	msg := ToolResultsMessage(results)
	if msg.Role != schema.Tool {
		t.Errorf("expected tool role, got %q", msg.Role)
	}

	decoded := DecodeToolResults(msg)
	if len(decoded) != 2 {
		t.Fatalf("expected 2 results, got %d", len(decoded))
	}
	if decoded[0].Name != "search_emails" {
		t.Errorf("unexpected first result: %+v", decoded[0])
	}
	if !decoded[1].IsError {
		t.Error("expected error flag to survive round trip")
	}
}

func TestDecodeToolResultsPlainContent(t *testing.T) {
	msg := &schema.Message{Role: schema.Tool, Name: "read_email", Content: "plain text"}

	decoded := DecodeToolResults(msg)
	if len(decoded) != 1 {
		t.Fatalf("expected 1 result, got %d", len(decoded))
	}
	if decoded[0].Name != "read_email" {
		t.Errorf("unexpected name: %q", decoded[0].Name)
	}
	var content string
	if err := json.Unmarshal(decoded[0].Content, &content); err != nil || content != "plain text" {
		t.Errorf("unexpected content: %s", decoded[0].Content)
	}
}

func TestFuncAdapter(t *testing.T) {
	wantErr := errors.New("boom")
	p := Func(func(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
		if len(req.Messages) != 1 {
			t.Errorf("expected 1 message, got %d", len(req.Messages))
		}
		return nil, wantErr
	})

	_, err := p.Generate(context.Background(), &GenerateRequest{
		Messages: []*schema.Message{{Role: schema.User, Content: "hi"}},
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
