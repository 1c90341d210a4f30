package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/echomail-ai/echomail/internal/mail"
	"github.com/echomail-ai/echomail/internal/provider"
)

func testCache() []mail.EmailSummary {
	return []mail.EmailSummary{
		{ID: "m0", From: "Sarah Lee <sarah@example.com>", Subject: "Q3 Budget review"},
		{ID: "m1", From: "Tom Park <tom@example.com>", Subject: "Lunch tomorrow?"},
		{ID: "m2", From: "noreply@github.com", Subject: "Build failed on main"},
	}
}

// modelAnswering returns a provider that replies with the given text and
// counts invocations.
func modelAnswering(text string, calls *int) provider.Provider {
	return provider.Func(func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResult, error) {
		if calls != nil {
			*calls++
		}
		return &provider.GenerateResult{Message: &schema.Message{Role: schema.Assistant, Content: text}}, nil
	})
}

func TestResolveEmptyCache(t *testing.T) {
	calls := 0
	r := NewResolver(modelAnswering("1", &calls), "test-model")

	_, ok := r.Resolve(context.Background(), "the first one", nil, nil)
	if ok {
		t.Error("expected no match against an empty cache")
	}
	if calls != 0 {
		t.Errorf("empty cache must not trigger a model call, got %d", calls)
	}
}

func TestResolveOrdinals(t *testing.T) {
	calls := 0
	r := NewResolver(modelAnswering("2", &calls), "test-model")
	cache := testCache()

	cases := map[string]int{
		"the first one":       0,
		"first":               0,
		"1st":                 0,
		"the top email":       0,
		"the latest one":      0,
		"the most recent one": 0,
		"second":              1,
		"the third message":   2,
		"the last one":        2,
		"the oldest email":    2,
	}
	for phrase, want := range cases {
		got, ok := r.Resolve(context.Background(), phrase, cache, nil)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = (%d, %v), want (%d, true)", phrase, got, ok, want)
		}
	}
	if calls != 0 {
		t.Errorf("ordinals must resolve without the model, got %d calls", calls)
	}
}

func TestResolveOrdinalOutOfRange(t *testing.T) {
	r := NewResolver(modelAnswering("0", nil), "test-model")
	cache := testCache()[:2]

	got, ok := r.Resolve(context.Background(), "the fifth one", cache, nil)
	if !ok || got != 0 {
		t.Errorf("out-of-range ordinal should fall back to 0, got (%d, %v)", got, ok)
	}
}

func TestResolveBySender(t *testing.T) {
	calls := 0
	r := NewResolver(modelAnswering("2", &calls), "test-model")

	got, ok := r.Resolve(context.Background(), "the email from tom", testCache(), nil)
	if !ok || got != 1 {
		t.Errorf("Resolve(from tom) = (%d, %v), want (1, true)", got, ok)
	}
	if calls != 0 {
		t.Errorf("sender match must resolve without the model, got %d calls", calls)
	}
}

func TestResolveBySubject(t *testing.T) {
	cases := map[string]int{
		"the one about budget": 0,
		"regarding lunch":      1,
		"about the build":      2,
	}
	r := NewResolver(modelAnswering("0", nil), "test-model")
	for phrase, want := range cases {
		got, ok := r.Resolve(context.Background(), phrase, testCache(), nil)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = (%d, %v), want (%d, true)", phrase, got, ok, want)
		}
	}
}

func TestResolveBarePhraseMatchesEitherField(t *testing.T) {
	r := NewResolver(modelAnswering("0", nil), "test-model")

	got, ok := r.Resolve(context.Background(), "github", testCache(), nil)
	if !ok || got != 2 {
		t.Errorf("Resolve(github) = (%d, %v), want (2, true)", got, ok)
	}
}

func TestResolveModelFallback(t *testing.T) {
	calls := 0
	r := NewResolver(modelAnswering("2", &calls), "test-model")

	got, ok := r.Resolve(context.Background(), "the scary looking one", testCache(), nil)
	if !ok || got != 2 {
		t.Errorf("Resolve = (%d, %v), want (2, true)", got, ok)
	}
	if calls != 1 {
		t.Errorf("expected one model call, got %d", calls)
	}
}

func TestResolveModelFallbackTrimsWhitespace(t *testing.T) {
	r := NewResolver(modelAnswering("  1\n", nil), "test-model")

	got, ok := r.Resolve(context.Background(), "the interesting one", testCache(), nil)
	if !ok || got != 1 {
		t.Errorf("Resolve = (%d, %v), want (1, true)", got, ok)
	}
}

func TestResolveModelGarbageFallsBackToZero(t *testing.T) {
	for _, answer := range []string{"the second email", "2.", "7", "-1", ""} {
		r := NewResolver(modelAnswering(answer, nil), "test-model")
		got, ok := r.Resolve(context.Background(), "the mystery one", testCache(), nil)
		if !ok || got != 0 {
			t.Errorf("model answer %q: Resolve = (%d, %v), want (0, true)", answer, got, ok)
		}
	}
}

func TestResolveModelErrorFallsBackToZero(t *testing.T) {
	p := provider.Func(func(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResult, error) {
		return nil, errors.New("model unavailable")
	})
	r := NewResolver(p, "test-model")

	got, ok := r.Resolve(context.Background(), "the mystery one", testCache(), nil)
	if !ok || got != 0 {
		t.Errorf("Resolve = (%d, %v), want (0, true)", got, ok)
	}
}
