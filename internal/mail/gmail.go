package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/echomail-ai/echomail/internal/logging"
)

const defaultSearchResults = 10

// GmailService implements Service against the Gmail API.
type GmailService struct {
	svc *gmail.UsersService
	log zerolog.Logger
}

// GmailOptions configures Gmail client construction.
type GmailOptions struct {
	ClientID     string
	ClientSecret string

	// RefreshToken seeds authentication when no token has been stored
	// yet (headless deployments).
	RefreshToken string

	// TokenDir is where OAuth tokens are persisted.
	TokenDir string
}

// NewGmailService builds an authenticated Gmail client. Initialization
// is verified with a profile fetch and retried up to two extra times
// with exponential backoff; before the final retry the access token is
// refreshed in case the stored one has gone stale.
func NewGmailService(ctx context.Context, opts GmailOptions) (*GmailService, error) {
	store := NewTokenStore(opts.TokenDir)
	cfg := oauthConfig(opts.ClientID, opts.ClientSecret)

	token, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotAuthenticated) || opts.RefreshToken == "" {
			return nil, err
		}
		token = &oauth2.Token{RefreshToken: opts.RefreshToken}
	}

	const extraAttempts = 2
	log := logging.Component("mail")

	var svc *gmail.Service
	attempt := 0
	operation := func() error {
		attempt++
		if attempt == extraAttempts+1 {
			// Last chance: maybe the stored access token is the problem.
			if fresh, rerr := forceRefresh(ctx, cfg, store, token); rerr == nil {
				token = fresh
			} else {
				log.Warn().Err(rerr).Msg("token refresh before final retry failed")
			}
		}

		ts := newPersistingTokenSource(ctx, cfg, store, token)
		s, err := gmail.NewService(ctx, option.WithTokenSource(ts))
		if err != nil {
			return err
		}
		if _, err := s.Users.GetProfile("me").Context(ctx).Do(); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("gmail client verification failed")
			return err
		}
		svc = s
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), extraAttempts)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("failed to initialize gmail client: %w", err)
	}

	return &GmailService{svc: svc.Users, log: log}, nil
}

// SearchEmails lists messages matching a Gmail search query.
func (g *GmailService) SearchEmails(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}

	res, err := g.svc.Messages.List("me").Q(query).MaxResults(int64(maxResults)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	emails := make([]EmailSummary, 0, len(res.Messages))
	for _, m := range res.Messages {
		msg, err := g.svc.Messages.Get("me", m.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			g.log.Warn().Err(err).Str("messageID", m.Id).Msg("failed to fetch message metadata")
			continue
		}
		emails = append(emails, EmailSummary{
			ID:       msg.Id,
			ThreadID: msg.ThreadId,
			Subject:  headerValue(msg, "Subject"),
			From:     headerValue(msg, "From"),
			Date:     headerValue(msg, "Date"),
			Snippet:  msg.Snippet,
		})
	}

	return &SearchResult{Emails: emails, Query: query, TotalCount: len(emails)}, nil
}

// ReadEmail fetches a full message by id.
func (g *GmailService) ReadEmail(ctx context.Context, id string) (*EmailDetail, error) {
	msg, err := g.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read email %s: %w", id, err)
	}

	return &EmailDetail{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  headerValue(msg, "Subject"),
		From:     headerValue(msg, "From"),
		To:       headerValue(msg, "To"),
		Date:     headerValue(msg, "Date"),
		Snippet:  msg.Snippet,
		Body:     extractBody(msg.Payload),
		LabelIDs: msg.LabelIds,
	}, nil
}

// SendEmail sends a message through the Gmail API.
func (g *GmailService) SendEmail(ctx context.Context, email *OutgoingEmail) (*SendResult, error) {
	if len(email.To) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	if email.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if email.Body == "" {
		return nil, fmt.Errorf("body is required")
	}

	raw := base64.URLEncoding.EncodeToString([]byte(buildRFC2822(email)))
	sent, err := g.svc.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	g.log.Info().Str("messageID", sent.Id).Msg("email sent")
	return &SendResult{MessageID: sent.Id, Action: "sent"}, nil
}

// ListLabels returns the user's labels.
func (g *GmailService) ListLabels(ctx context.Context) ([]Label, error) {
	res, err := g.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make([]Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// CreateLabel creates a new user label.
func (g *GmailService) CreateLabel(ctx context.Context, name string) (*LabelResult, error) {
	created, err := g.svc.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create label %q: %w", name, err)
	}

	return &LabelResult{
		Message: fmt.Sprintf("Label %q created", name),
		Label:   &Label{ID: created.Id, Name: created.Name, Type: created.Type},
	}, nil
}

// UpdateLabel renames a label identified by its current name.
func (g *GmailService) UpdateLabel(ctx context.Context, name, newName string) (*LabelResult, error) {
	label, err := g.findLabel(ctx, name)
	if err != nil {
		return nil, err
	}

	updated, err := g.svc.Labels.Patch("me", label.ID, &gmail.Label{Name: newName}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update label %q: %w", name, err)
	}

	return &LabelResult{
		Message: fmt.Sprintf("Label %q renamed to %q", name, newName),
		Label:   &Label{ID: updated.Id, Name: updated.Name, Type: updated.Type},
	}, nil
}

// DeleteLabel deletes a label identified by name.
func (g *GmailService) DeleteLabel(ctx context.Context, name string) (*LabelResult, error) {
	label, err := g.findLabel(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := g.svc.Labels.Delete("me", label.ID).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("failed to delete label %q: %w", name, err)
	}

	return &LabelResult{Message: fmt.Sprintf("Label %q deleted", name)}, nil
}

// GetOrCreateLabel returns the label with the given name, creating it if
// necessary.
func (g *GmailService) GetOrCreateLabel(ctx context.Context, name string) (*LabelResult, error) {
	label, err := g.findLabel(ctx, name)
	if err == nil {
		return &LabelResult{
			Message: fmt.Sprintf("Label %q already exists", name),
			Label:   label,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return g.CreateLabel(ctx, name)
}

// findLabel looks up a label by case-insensitive name.
func (g *GmailService) findLabel(ctx context.Context, name string) (*Label, error) {
	labels, err := g.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("label %q: %w", name, ErrNotFound)
}

// headerValue returns the value of a named header, or "".
func headerValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody walks a message payload and returns the decoded body,
// preferring text/plain over text/html.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if body := findPart(payload, "text/plain"); body != "" {
		return body
	}
	if body := findPart(payload, "text/html"); body != "" {
		return body
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBase64URL(payload.Body.Data)
	}
	return ""
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	for _, p := range part.Parts {
		if body := findPart(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodeBase64URL decodes Gmail body data, which arrives base64url
// encoded with or without padding.
func decodeBase64URL(data string) string {
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}

// buildRFC2822 assembles the wire form of an outgoing message.
func buildRFC2822(email *OutgoingEmail) string {
	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(strings.Join(email.To, ", "))
	b.WriteString("\r\n")

	if len(email.Cc) > 0 {
		b.WriteString("Cc: ")
		b.WriteString(strings.Join(email.Cc, ", "))
		b.WriteString("\r\n")
	}
	if len(email.Bcc) > 0 {
		b.WriteString("Bcc: ")
		b.WriteString(strings.Join(email.Bcc, ", "))
		b.WriteString("\r\n")
	}

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(email.Subject))
	b.WriteString("\r\n")

	if email.IsHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.Body)

	return b.String()
}

// encodeRFC2047 encodes a header value when it carries non-ASCII runes.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
