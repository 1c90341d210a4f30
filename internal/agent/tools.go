package agent

import (
	"encoding/json"
	"fmt"

	"github.com/echomail-ai/echomail/internal/provider"
)

// ToolKind enumerates the fixed tool catalog. The set is closed: the
// model cannot request anything outside it.
type ToolKind int

const (
	ToolSendEmail ToolKind = iota
	ToolReadEmail
	ToolSearchEmails
	ToolListLabels
	ToolCreateLabel
	ToolUpdateLabel
	ToolDeleteLabel
	ToolGetOrCreateLabel
)

var toolKinds = map[string]ToolKind{
	"send_email":          ToolSendEmail,
	"read_email":          ToolReadEmail,
	"search_emails":       ToolSearchEmails,
	"list_labels":         ToolListLabels,
	"create_label":        ToolCreateLabel,
	"update_label":        ToolUpdateLabel,
	"delete_label":        ToolDeleteLabel,
	"get_or_create_label": ToolGetOrCreateLabel,
}

// ToolError marks a tool execution failure and carries the tool name so
// the turn's ERROR event can say which tool broke.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Argument shapes for the tool catalog.

type sendEmailArgs struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	IsHTML  bool     `json:"isHtml,omitempty"`
}

type readEmailArgs struct {
	MessageID string `json:"messageId,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type searchEmailsArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type labelArgs struct {
	Name    string `json:"name"`
	NewName string `json:"newName,omitempty"`
}

// toolCatalog returns the tool definitions submitted with every model
// round.
func toolCatalog() []provider.ToolInfo {
	return []provider.ToolInfo{
		{
			Name:        "send_email",
			Description: "Send an email on the user's behalf. Use only when the user has clearly asked to send a message and has given recipient, subject, and body.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"to": {"type": "array", "items": {"type": "string"}, "description": "Recipient email addresses"},
					"cc": {"type": "array", "items": {"type": "string"}, "description": "CC email addresses"},
					"bcc": {"type": "array", "items": {"type": "string"}, "description": "BCC email addresses"},
					"subject": {"type": "string", "description": "Email subject line"},
					"body": {"type": "string", "description": "Email body text"},
					"isHtml": {"type": "boolean", "description": "Whether the body is HTML"}
				},
				"required": ["to", "subject", "body"]
			}`),
		},
		{
			Name:        "read_email",
			Description: "Read the full content of one email. Provide messageId when known, or reference when the user points at a recent search result (\"the first one\", \"the email from Sarah\").",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"messageId": {"type": "string", "description": "Gmail message id"},
					"reference": {"type": "string", "description": "Natural-language reference to a recently listed email"}
				}
			}`),
		},
		{
			Name:        "search_emails",
			Description: "Search the user's mailbox with a Gmail query (e.g. \"from:sarah is:unread\", \"subject:invoice newer_than:7d\").",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Gmail search query"},
					"maxResults": {"type": "integer", "description": "Maximum number of results, default 10"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "list_labels",
			Description: "List the user's Gmail labels.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "create_label",
			Description: "Create a new Gmail label.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Label name"}
				},
				"required": ["name"]
			}`),
		},
		{
			Name:        "update_label",
			Description: "Rename an existing Gmail label.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Current label name"},
					"newName": {"type": "string", "description": "New label name"}
				},
				"required": ["name", "newName"]
			}`),
		},
		{
			Name:        "delete_label",
			Description: "Delete a Gmail label.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Label name"}
				},
				"required": ["name"]
			}`),
		},
		{
			Name:        "get_or_create_label",
			Description: "Return a Gmail label by name, creating it first if it does not exist.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string", "description": "Label name"}
				},
				"required": ["name"]
			}`),
		},
	}
}
