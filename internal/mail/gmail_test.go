package mail

import (
	"encoding/base64"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func TestBuildRFC2822(t *testing.T) {
	email := &OutgoingEmail{
		To:      []string{"a@example.com", "b@example.com"},
		Cc:      []string{"c@example.com"},
		Subject: "Quarterly report",
		Body:    "Attached below.",
	}

	raw := buildRFC2822(email)

	if !strings.HasPrefix(raw, "To: a@example.com, b@example.com\r\n") {
		t.Errorf("unexpected To header: %q", raw)
	}
	if !strings.Contains(raw, "Cc: c@example.com\r\n") {
		t.Error("missing Cc header")
	}
	if strings.Contains(raw, "Bcc:") {
		t.Error("unexpected Bcc header")
	}
	if !strings.Contains(raw, "Subject: Quarterly report\r\n") {
		t.Error("missing Subject header")
	}
	if !strings.Contains(raw, "Content-Type: text/plain; charset=\"UTF-8\"\r\n") {
		t.Error("missing Content-Type header")
	}
	if !strings.HasSuffix(raw, "\r\n\r\nAttached below.") {
		t.Errorf("body not separated from headers: %q", raw)
	}
}

func TestBuildRFC2822HTML(t *testing.T) {
	email := &OutgoingEmail{
		To:      []string{"a@example.com"},
		Subject: "Hi",
		Body:    "<p>Hello</p>",
		IsHTML:  true,
	}

	raw := buildRFC2822(email)
	if !strings.Contains(raw, "Content-Type: text/html; charset=\"UTF-8\"\r\n") {
		t.Errorf("expected HTML content type: %q", raw)
	}
}

func TestEncodeRFC2047(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		encoded bool
	}{
		{"ascii passes through", "Meeting notes", false},
		{"umlauts encoded", "Grüße aus München", true},
		{"hindi encoded", "नमस्ते", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeRFC2047(tt.input)
			if tt.encoded {
				if !strings.HasPrefix(got, "=?UTF-8?") {
					t.Errorf("expected RFC 2047 encoding, got %q", got)
				}
			} else if got != tt.input {
				t.Errorf("expected passthrough, got %q", got)
			}
		})
	}
}

func TestDecodeBase64URL(t *testing.T) {
	plain := "Hello, world"

	padded := base64.URLEncoding.EncodeToString([]byte(plain))
	if got := decodeBase64URL(padded); got != plain {
		t.Errorf("padded decode: got %q", got)
	}

	raw := base64.RawURLEncoding.EncodeToString([]byte(plain))
	if got := decodeBase64URL(raw); got != plain {
		t.Errorf("raw decode: got %q", got)
	}

	if got := decodeBase64URL("!!not base64!!"); got != "" {
		t.Errorf("expected empty string for invalid input, got %q", got)
	}
}

func TestHeaderValue(t *testing.T) {
	msg := &gmail.Message{
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Lunch?"},
				{Name: "From", Value: "Sarah <sarah@example.com>"},
			},
		},
	}

	if got := headerValue(msg, "subject"); got != "Lunch?" {
		t.Errorf("expected case-insensitive match, got %q", got)
	}
	if got := headerValue(msg, "Date"); got != "" {
		t.Errorf("expected empty for missing header, got %q", got)
	}
	if got := headerValue(&gmail.Message{}, "Subject"); got != "" {
		t.Errorf("expected empty for nil payload, got %q", got)
	}
}

func TestExtractBodyPrefersPlainText(t *testing.T) {
	encode := func(s string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(s))
	}

	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: encode("<p>hi</p>")},
			},
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: encode("hi")},
			},
		},
	}

	if got := extractBody(payload); got != "hi" {
		t.Errorf("expected plain text part, got %q", got)
	}
}

func TestExtractBodyFallsBackToHTML(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{{
			MimeType: "text/html",
			Body: &gmail.MessagePartBody{
				Data: base64.RawURLEncoding.EncodeToString([]byte("<p>only html</p>")),
			},
		}},
	}

	if got := extractBody(payload); got != "<p>only html</p>" {
		t.Errorf("expected html fallback, got %q", got)
	}
}

func TestExtractBodySinglePart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body: &gmail.MessagePartBody{
			Data: base64.RawURLEncoding.EncodeToString([]byte("single part body")),
		},
	}

	if got := extractBody(payload); got != "single part body" {
		t.Errorf("got %q", got)
	}
	if got := extractBody(nil); got != "" {
		t.Errorf("expected empty for nil payload, got %q", got)
	}
}
