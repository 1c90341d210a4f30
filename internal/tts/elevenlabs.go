package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ElevenLabsConfig configures the ElevenLabs TTS provider.
type ElevenLabsConfig struct {
	// APIKey is the ElevenLabs API key.
	APIKey string

	// VoiceID selects the voice. Default: "21m00Tcm4TlvDq8ikWAM" (Rachel).
	VoiceID string

	// ModelID selects the model. Default: "eleven_multilingual_v2".
	ModelID string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

type elevenLabs struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func newElevenLabs(cfg ElevenLabsConfig, client *http.Client) *elevenLabs {
	if cfg.VoiceID == "" {
		cfg.VoiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	return &elevenLabs{cfg: cfg, client: client}
}

func (e *elevenLabs) Synthesize(ctx context.Context, text string) (*Audio, error) {
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": e.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.cfg.BaseURL, e.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("tts: elevenlabs returned %s: %s", resp.Status, detail)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: failed to read audio: %w", err)
	}

	return &Audio{Data: data, Format: "mp3", MimeType: "audio/mpeg"}, nil
}
