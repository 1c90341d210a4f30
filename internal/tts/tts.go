// Package tts provides speech synthesis with multiple provider support
// and automatic fallback between providers.
package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/echomail-ai/echomail/internal/logging"
)

var (
	// ErrNotConfigured indicates no provider has credentials.
	ErrNotConfigured = errors.New("tts: no provider configured")

	// ErrEmptyText indicates there is nothing to synthesize.
	ErrEmptyText = errors.New("tts: text is empty")
)

const (
	defaultMaxTextLength = 4096
	defaultTimeout       = 30 * time.Second
)

// Audio is synthesized speech.
type Audio struct {
	Data     []byte
	Format   string // e.g. "mp3"
	MimeType string // e.g. "audio/mpeg"
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// Config selects and configures providers. The named primary provider
// is tried first; any other provider with credentials acts as fallback.
type Config struct {
	// Provider is the primary provider: "openai" or "elevenlabs".
	Provider string

	// MaxTextLength truncates longer input. Default: 4096.
	MaxTextLength int

	// Timeout bounds one synthesis call. Default: 30s.
	Timeout time.Duration

	OpenAI     OpenAIConfig
	ElevenLabs ElevenLabsConfig
}

// New builds a synthesizer from the configured providers. The result is
// a fallback chain when more than one provider has credentials.
func New(cfg Config) (Synthesizer, error) {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = defaultMaxTextLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := &http.Client{Timeout: cfg.Timeout}

	var providers []Synthesizer
	add := func(name string) {
		switch name {
		case "openai":
			if cfg.OpenAI.APIKey != "" {
				providers = append(providers, newOpenAI(cfg.OpenAI, client))
			}
		case "elevenlabs":
			if cfg.ElevenLabs.APIKey != "" {
				providers = append(providers, newElevenLabs(cfg.ElevenLabs, client))
			}
		}
	}

	add(cfg.Provider)
	for _, name := range []string{"openai", "elevenlabs"} {
		if name != cfg.Provider {
			add(name)
		}
	}

	if len(providers) == 0 {
		return nil, ErrNotConfigured
	}

	return &chain{
		providers:     providers,
		maxTextLength: cfg.MaxTextLength,
		timeout:       cfg.Timeout,
	}, nil
}

// chain tries providers in order until one succeeds.
type chain struct {
	providers     []Synthesizer
	maxTextLength int
	timeout       time.Duration
}

func (c *chain) Synthesize(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > c.maxTextLength {
		text = text[:c.maxTextLength]
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for _, p := range c.providers {
		audio, err := p.Synthesize(ctx, text)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logging.Warn().Err(err).Msg("tts provider failed, trying fallback")
	}

	return nil, fmt.Errorf("tts: all providers failed: %w", lastErr)
}
