// Package provider provides the LLM abstraction for the echomail agent.
//
// The package exposes a single Provider interface whose Generate method
// takes a conversation history (eino schema messages) plus tool
// definitions and returns one assistant message. The assistant message
// may carry plain text, tool calls requested by the model, or both.
//
// # Gemini
//
// Gemini is the production implementation, built on the Google Gen AI
// SDK. System-role messages are lifted out of the history and sent as
// the system instruction; tool definitions are converted from JSON
// Schema to Gemini function declarations; function calls in the
// response come back as eino tool calls with generated IDs.
//
// # Tool results
//
// A round of tool execution is recorded as a single tool-role message
// built with ToolResultsMessage. The Gemini implementation decodes it
// back into one FunctionResponse part per invocation.
//
// # Testing
//
// Func adapts a plain function to Provider so tests can script model
// behavior without network access:
//
//	fake := provider.Func(func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResult, error) {
//	    return &provider.GenerateResult{Message: schema.AssistantMessage("done", nil)}, nil
//	})
package provider
