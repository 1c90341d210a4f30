package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/echomail-ai/echomail/internal/logging"
	"github.com/echomail-ai/echomail/internal/mail"
	"github.com/echomail-ai/echomail/internal/provider"
)

// recentContextSize is how many trailing history entries are handed to
// the model when rule-based resolution comes up empty.
const recentContextSize = 5

// lastIndex marks ordinals that mean the final cache entry.
const lastIndex = -1

// ordinals maps positional words to cache indexes after filler words
// are stripped.
var ordinals = map[string]int{
	"first":       0,
	"1st":         0,
	"top":         0,
	"latest":      0,
	"newest":      0,
	"most recent": 0,
	"second":      1,
	"2nd":         1,
	"third":       2,
	"3rd":         2,
	"fourth":      3,
	"4th":         3,
	"fifth":       4,
	"5th":         4,
	"last":        lastIndex,
	"bottom":      lastIndex,
	"oldest":      lastIndex,
}

var fillerWords = []string{"the", "email", "e-mail", "message", "mail", "one", "that", "this"}

// Resolver maps a natural-language pointer ("the first one", "the email
// from Sarah") to an index into the last-search cache. It never fails:
// anything unresolvable becomes index 0, a deliberate best guess.
type Resolver struct {
	provider provider.Provider
	model    string
}

// NewResolver creates a resolver that falls back to the given model for
// references the rules cannot settle.
func NewResolver(p provider.Provider, model string) *Resolver {
	return &Resolver{provider: p, model: model}
}

// Resolve returns the cache index the phrase points at. ok is false
// only when the cache is empty, in which case no model call is made.
func (r *Resolver) Resolve(ctx context.Context, phrase string, cache []mail.EmailSummary, recent []*schema.Message) (int, bool) {
	n := len(cache)
	if n == 0 {
		return 0, false
	}

	normalized := strings.ToLower(strings.TrimSpace(phrase))

	if idx, ok := resolveOrdinal(normalized, n); ok {
		return idx, true
	}
	if idx, ok := resolveContent(normalized, cache); ok {
		return idx, true
	}

	return r.askModel(ctx, phrase, cache, recent), true
}

// resolveOrdinal handles positional words without a model call.
func resolveOrdinal(phrase string, n int) (int, bool) {
	filler := make(map[string]bool, len(fillerWords))
	for _, w := range fillerWords {
		filler[w] = true
	}
	var kept []string
	for _, f := range strings.Fields(phrase) {
		if !filler[f] {
			kept = append(kept, f)
		}
	}
	stripped := strings.Join(kept, " ")

	idx, ok := ordinals[stripped]
	if !ok {
		return 0, false
	}
	if idx == lastIndex {
		return n - 1, true
	}
	if idx >= n {
		return 0, true
	}
	return idx, true
}

// resolveContent prefers sender and subject substring matches for
// references like "from sarah" or "about budget". The marker words may
// sit anywhere in the phrase ("the email from sarah").
func resolveContent(phrase string, cache []mail.EmailSummary) (int, bool) {
	if needle, ok := cutAfter(phrase, "from "); ok {
		for i, e := range cache {
			if strings.Contains(strings.ToLower(e.From), needle) {
				return i, true
			}
		}
	}

	for _, marker := range []string{"about ", "regarding ", "re: "} {
		if needle, ok := cutAfter(phrase, marker); ok {
			for i, e := range cache {
				if strings.Contains(strings.ToLower(e.Subject), needle) {
					return i, true
				}
			}
		}
	}

	// Bare phrase: try it against both fields.
	if phrase != "" {
		for i, e := range cache {
			if strings.Contains(strings.ToLower(e.From), phrase) ||
				strings.Contains(strings.ToLower(e.Subject), phrase) {
				return i, true
			}
		}
	}

	return 0, false
}

// cutAfter returns the trimmed remainder of phrase after the first
// occurrence of marker, stripping a trailing "one"-style filler.
func cutAfter(phrase, marker string) (string, bool) {
	i := strings.Index(phrase, marker)
	if i < 0 {
		return "", false
	}
	needle := strings.TrimSpace(phrase[i+len(marker):])
	needle = strings.TrimPrefix(needle, "the ")
	return needle, needle != ""
}

// askModel asks for a bare integer and accepts only a strict in-range
// parse; everything else falls back to index 0.
func (r *Resolver) askModel(ctx context.Context, phrase string, cache []mail.EmailSummary, recent []*schema.Message) int {
	var list strings.Builder
	for i, e := range cache {
		fmt.Fprintf(&list, "%d: from=%s subject=%s\n", i, e.From, e.Subject)
	}

	if len(recent) > recentContextSize {
		recent = recent[len(recent)-recentContextSize:]
	}
	var contextLines strings.Builder
	for _, m := range recent {
		if m.Content != "" {
			fmt.Fprintf(&contextLines, "%s: %s\n", m.Role, m.Content)
		}
	}

	prompt := fmt.Sprintf(
		"The user referred to an email as %q.\n\nRecent conversation:\n%s\nCached emails:\n%s\nReply with ONLY the integer index of the email the user means. No other text.",
		phrase, contextLines.String(), list.String(),
	)

	res, err := r.provider.Generate(ctx, &provider.GenerateRequest{
		Model:    r.model,
		Messages: []*schema.Message{{Role: schema.User, Content: prompt}},
	})
	if err != nil {
		logging.Debug().Err(err).Str("phrase", phrase).Msg("reference resolution model call failed, using index 0")
		return 0
	}

	idx, err := strconv.Atoi(strings.TrimSpace(res.Message.Content))
	if err != nil || idx < 0 || idx >= len(cache) {
		return 0
	}
	return idx
}
