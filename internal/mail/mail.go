// Package mail defines the mail collaborator consumed by the agent and
// its Gmail implementation.
package mail

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthenticated indicates no usable OAuth credentials.
	ErrNotAuthenticated = errors.New("mail: not authenticated")

	// ErrNotFound indicates the requested message or label does not exist.
	ErrNotFound = errors.New("mail: not found")
)

// EmailSummary is the compact form returned by search.
type EmailSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
}

// SearchResult carries the emails matching a query.
type SearchResult struct {
	Emails     []EmailSummary `json:"emails"`
	Query      string         `json:"query"`
	TotalCount int            `json:"totalCount"`
}

// EmailDetail is a full message body plus headers.
type EmailDetail struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Subject  string   `json:"subject"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet"`
	Body     string   `json:"body"`
	LabelIDs []string `json:"labelIds,omitempty"`
}

// OutgoingEmail is a message to be sent.
type OutgoingEmail struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	IsHTML  bool     `json:"isHtml,omitempty"`
}

// SendResult reports a successful send.
type SendResult struct {
	MessageID string `json:"messageId"`
	Action    string `json:"action"`
}

// Label is a Gmail label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// LabelResult reports the outcome of a label mutation.
type LabelResult struct {
	Message string `json:"message"`
	Label   *Label `json:"label,omitempty"`
}

// Service is the mail collaborator the agent's tools execute against.
type Service interface {
	SearchEmails(ctx context.Context, query string, maxResults int) (*SearchResult, error)
	ReadEmail(ctx context.Context, id string) (*EmailDetail, error)
	SendEmail(ctx context.Context, email *OutgoingEmail) (*SendResult, error)
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, name string) (*LabelResult, error)
	UpdateLabel(ctx context.Context, name, newName string) (*LabelResult, error)
	DeleteLabel(ctx context.Context, name string) (*LabelResult, error)
	GetOrCreateLabel(ctx context.Context, name string) (*LabelResult, error)
}
