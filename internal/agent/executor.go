package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/echomail-ai/echomail/internal/mail"
	"github.com/echomail-ai/echomail/internal/provider"
)

// executeTurn runs one model round with the tool catalog. Zero tool
// calls means the model's text is the answer. Otherwise the calls are
// executed sequentially, one tool-role entry records all results, and a
// second narration pass produces the final text. Returns the answer and
// the number of tool calls executed.
func (a *Agent) executeTurn(ctx context.Context) (string, int, error) {
	res, err := a.provider.Generate(ctx, &provider.GenerateRequest{
		Model:    a.model,
		Messages: a.History(),
		Tools:    toolCatalog(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("model call failed: %w", err)
	}

	msg := res.Message
	if len(msg.ToolCalls) == 0 {
		a.appendMessage(msg)
		return msg.Content, 0, nil
	}

	// Record the tool-call request before executing anything so a
	// failed tool still leaves the history explaining what was tried.
	a.appendMessage(msg)

	results := make([]provider.ToolResult, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		payload, err := a.executeTool(ctx, tc)
		if err != nil {
			return "", 0, &ToolError{Tool: tc.Function.Name, Err: err}
		}
		results = append(results, provider.ToolResult{Name: tc.Function.Name, Content: payload})
	}
	a.appendMessage(provider.ToolResultsMessage(results))

	answer, err := a.narrate(ctx, results)
	if err != nil {
		return "", 0, err
	}
	a.appendMessage(&schema.Message{Role: schema.Assistant, Content: answer})

	return answer, len(msg.ToolCalls), nil
}

// narrate produces the final assistant text after tool execution. With
// humanize enabled this is a second model call; otherwise a
// deterministic summary keeps the history shape without the extra
// round trip.
func (a *Agent) narrate(ctx context.Context, results []provider.ToolResult) (string, error) {
	if !a.humanize {
		return summarizeResults(results), nil
	}

	history := append(a.History(), &schema.Message{Role: schema.User, Content: humanizeInstruction})
	res, err := a.provider.Generate(ctx, &provider.GenerateRequest{
		Model:    a.model,
		Messages: history,
	})
	if err != nil {
		return "", fmt.Errorf("humanize call failed: %w", err)
	}
	return res.Message.Content, nil
}

// summarizeResults is the non-humanized narration: short and literal.
func summarizeResults(results []provider.ToolResult) string {
	if len(results) == 1 {
		return fmt.Sprintf("Done. The %s operation completed successfully.", results[0].Name)
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return fmt.Sprintf("Done. Completed %d operations: %v.", len(results), names)
}

// executeTool dispatches one tool call against the mail collaborator.
func (a *Agent) executeTool(ctx context.Context, tc schema.ToolCall) (json.RawMessage, error) {
	kind, ok := toolKinds[tc.Function.Name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", tc.Function.Name)
	}

	args := []byte(tc.Function.Arguments)
	if len(args) == 0 {
		args = []byte("{}")
	}

	a.log.Debug().Str("sessionID", a.sessionID).Str("tool", tc.Function.Name).Msg("executing tool")

	switch kind {
	case ToolSearchEmails:
		return a.execSearchEmails(ctx, args)
	case ToolReadEmail:
		return a.execReadEmail(ctx, args)
	case ToolSendEmail:
		return a.execSendEmail(ctx, args)
	case ToolListLabels:
		return a.execListLabels(ctx)
	case ToolCreateLabel:
		return a.execLabelOp(ctx, args, a.mailSvc.CreateLabel)
	case ToolDeleteLabel:
		return a.execLabelOp(ctx, args, a.mailSvc.DeleteLabel)
	case ToolGetOrCreateLabel:
		return a.execLabelOp(ctx, args, a.mailSvc.GetOrCreateLabel)
	case ToolUpdateLabel:
		return a.execUpdateLabel(ctx, args)
	default:
		return nil, fmt.Errorf("unhandled tool kind %d", kind)
	}
}

// execSearchEmails runs a search and replaces the last-search cache
// wholesale on a non-empty result; an empty result clears it.
func (a *Agent) execSearchEmails(ctx context.Context, raw []byte) (json.RawMessage, error) {
	var args searchEmailsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := a.mailSvc.SearchEmails(ctx, args.Query, args.MaxResults)
	if err != nil {
		a.setLastSearch(nil)
		return nil, err
	}

	a.setLastSearch(result.Emails)
	return marshalResult(map[string]any{
		"success":    true,
		"emails":     result.Emails,
		"query":      result.Query,
		"totalCount": result.TotalCount,
	})
}

// execReadEmail reads by id, or resolves a natural-language reference
// against the last-search cache.
func (a *Agent) execReadEmail(ctx context.Context, raw []byte) (json.RawMessage, error) {
	var args readEmailArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	id := args.MessageID
	if id == "" {
		if args.Reference == "" {
			return nil, fmt.Errorf("either messageId or reference is required")
		}
		cache := a.LastSearch()
		idx, ok := a.resolver.Resolve(ctx, args.Reference, cache, a.History())
		if !ok {
			return nil, fmt.Errorf("no recent search results to resolve %q against; search first", args.Reference)
		}
		id = cache[idx].ID
	}

	detail, err := a.mailSvc.ReadEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{"success": true, "email": detail})
}

func (a *Agent) execSendEmail(ctx context.Context, raw []byte) (json.RawMessage, error) {
	var args sendEmailArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	result, err := a.mailSvc.SendEmail(ctx, &mail.OutgoingEmail{
		To:      args.To,
		Cc:      args.Cc,
		Bcc:     args.Bcc,
		Subject: args.Subject,
		Body:    args.Body,
		IsHTML:  args.IsHTML,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{
		"success":   true,
		"messageId": result.MessageID,
		"action":    result.Action,
	})
}

func (a *Agent) execListLabels(ctx context.Context) (json.RawMessage, error) {
	labels, err := a.mailSvc.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{"success": true, "labels": labels, "count": len(labels)})
}

// execLabelOp covers the single-name label operations.
func (a *Agent) execLabelOp(ctx context.Context, raw []byte, op func(context.Context, string) (*mail.LabelResult, error)) (json.RawMessage, error) {
	var args labelArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Name == "" {
		return nil, fmt.Errorf("label name is required")
	}

	result, err := op(ctx, args.Name)
	if err != nil {
		return nil, err
	}
	return marshalLabelResult(result)
}

func (a *Agent) execUpdateLabel(ctx context.Context, raw []byte) (json.RawMessage, error) {
	var args labelArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Name == "" || args.NewName == "" {
		return nil, fmt.Errorf("both name and newName are required")
	}

	result, err := a.mailSvc.UpdateLabel(ctx, args.Name, args.NewName)
	if err != nil {
		return nil, err
	}
	return marshalLabelResult(result)
}

func marshalLabelResult(result *mail.LabelResult) (json.RawMessage, error) {
	payload := map[string]any{"success": true, "message": result.Message}
	if result.Label != nil {
		payload["label"] = result.Label
	}
	return marshalResult(payload)
}

func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return data, nil
}

// LastSearch returns a snapshot of the last-search cache.
func (a *Agent) LastSearch() []mail.EmailSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]mail.EmailSummary, len(a.lastSearch))
	copy(out, a.lastSearch)
	return out
}

func (a *Agent) setLastSearch(emails []mail.EmailSummary) {
	a.mu.Lock()
	a.lastSearch = emails
	a.mu.Unlock()
}

func (a *Agent) appendMessage(msg *schema.Message) {
	a.mu.Lock()
	a.messages = append(a.messages, msg)
	a.mu.Unlock()
}
