package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAIConfig configures the OpenAI TTS provider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the TTS model. Default: "tts-1".
	Model string

	// Voice is one of "alloy", "echo", "fable", "onyx", "nova",
	// "shimmer". Default: "alloy".
	Voice string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

type openAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

func newOpenAI(cfg OpenAIConfig, client *http.Client) *openAI {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &openAI{cfg: cfg, client: client}
}

func (o *openAI) Synthesize(ctx context.Context, text string) (*Audio, error) {
	body, err := json.Marshal(map[string]any{
		"model":           o.cfg.Model,
		"input":           text,
		"voice":           o.cfg.Voice,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("tts: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("tts: openai returned %s: %s", resp.Status, detail)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to read audio: %w", err)
	}

	return &Audio{Data: data, Format: "mp3", MimeType: "audio/mpeg"}, nil
}
