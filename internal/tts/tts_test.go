package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewNoCredentials(t *testing.T) {
	_, err := New(Config{Provider: "openai"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if r.URL.Path != "/audio/speech" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	synth, err := New(Config{
		Provider: "openai",
		OpenAI:   OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	audio, err := synth.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if string(audio.Data) != "mp3-bytes" {
		t.Errorf("unexpected audio data: %q", audio.Data)
	}
	if audio.Format != "mp3" || audio.MimeType != "audio/mpeg" {
		t.Errorf("unexpected format metadata: %+v", audio)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotBody["input"] != "hello there" || gotBody["voice"] != "alloy" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "xi-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("eleven-audio"))
	}))
	defer srv.Close()

	synth, err := New(Config{
		Provider:   "elevenlabs",
		ElevenLabs: ElevenLabsConfig{APIKey: "xi-test", BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	audio, err := synth.Synthesize(context.Background(), "namaste")
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if string(audio.Data) != "eleven-audio" {
		t.Errorf("unexpected audio data: %q", audio.Data)
	}
}

func TestChainFallsBack(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer failing.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fallback-audio"))
	}))
	defer working.Close()

	synth, err := New(Config{
		Provider:   "openai",
		OpenAI:     OpenAIConfig{APIKey: "sk-test", BaseURL: failing.URL},
		ElevenLabs: ElevenLabsConfig{APIKey: "xi-test", BaseURL: working.URL},
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	audio, err := synth.Synthesize(context.Background(), "fall back please")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if string(audio.Data) != "fallback-audio" {
		t.Errorf("unexpected audio data: %q", audio.Data)
	}
}

func TestChainAllFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer failing.Close()

	synth, err := New(Config{
		Provider: "openai",
		OpenAI:   OpenAIConfig{APIKey: "sk-test", BaseURL: failing.URL},
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if _, err := synth.Synthesize(context.Background(), "hello"); err == nil {
		t.Error("expected error when all providers fail")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	synth, err := New(Config{
		Provider: "openai",
		OpenAI:   OpenAIConfig{APIKey: "sk-test"},
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if _, err := synth.Synthesize(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestSynthesizeTruncatesLongText(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotLen = len(body["input"].(string))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	synth, err := New(Config{
		Provider:      "openai",
		MaxTextLength: 10,
		Timeout:       5 * time.Second,
		OpenAI:        OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if _, err := synth.Synthesize(context.Background(), strings.Repeat("a", 100)); err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if gotLen != 10 {
		t.Errorf("expected truncation to 10, got %d", gotLen)
	}
}
