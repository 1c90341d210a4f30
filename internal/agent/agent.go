package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/echomail-ai/echomail/internal/event"
	"github.com/echomail-ai/echomail/internal/logging"
	"github.com/echomail-ai/echomail/internal/mail"
	"github.com/echomail-ai/echomail/internal/provider"
	"github.com/echomail-ai/echomail/internal/stream"
	"github.com/echomail-ai/echomail/internal/tts"
)

// Options configures a new Agent.
type Options struct {
	SessionID string
	Provider  provider.Provider
	Mail      mail.Service

	// Synthesizer may be nil; audio is then silently unavailable.
	Synthesizer tts.Synthesizer

	Channel *stream.Channel
	Model   string

	// HumanizeResults enables the second model call that restates tool
	// results conversationally.
	HumanizeResults bool

	AudioEnabled bool
}

// Agent owns one user's conversational state and drives one turn at a
// time. All methods are safe for concurrent use; overlapping turns are
// rejected rather than interleaved.
type Agent struct {
	sessionID string
	provider  provider.Provider
	mailSvc   mail.Service
	synth     tts.Synthesizer
	resolver  *Resolver
	model     string
	humanize  bool
	log       zerolog.Logger

	// turnMu is the single-flight token: held for the whole of one
	// HandleUserInput call.
	turnMu sync.Mutex

	mu           sync.Mutex
	messages     []*schema.Message
	turns        int
	lastSearch   []mail.EmailSummary
	audioEnabled bool
	channel      *stream.Channel
}

// New creates an agent with history holding only the system prompt.
func New(opts Options) *Agent {
	return &Agent{
		sessionID:    opts.SessionID,
		provider:     opts.Provider,
		mailSvc:      opts.Mail,
		synth:        opts.Synthesizer,
		resolver:     NewResolver(opts.Provider, opts.Model),
		model:        opts.Model,
		humanize:     opts.HumanizeResults,
		log:          logging.Component("agent"),
		messages:     []*schema.Message{{Role: schema.System, Content: systemPrompt}},
		audioEnabled: opts.AudioEnabled,
		channel:      opts.Channel,
	}
}

// SessionID returns the owning session id.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// TurnInProgress reports whether a turn is currently executing.
func (a *Agent) TurnInProgress() bool {
	if a.turnMu.TryLock() {
		a.turnMu.Unlock()
		return false
	}
	return true
}

// SetAudioEnabled toggles speech synthesis for subsequent turns.
func (a *Agent) SetAudioEnabled(enabled bool) {
	a.mu.Lock()
	a.audioEnabled = enabled
	a.mu.Unlock()
}

// AudioEnabled reports whether audio responses are requested.
func (a *Agent) AudioEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.audioEnabled
}

// UpdateStream replaces the attached output channel. In-flight
// emissions after the swap go to the new channel.
func (a *Agent) UpdateStream(ch *stream.Channel) {
	a.mu.Lock()
	a.channel = ch
	a.mu.Unlock()
}

// Close closes the attached output channel, swallowing errors.
func (a *Agent) Close() {
	a.mu.Lock()
	ch := a.channel
	a.mu.Unlock()
	if ch != nil {
		_ = ch.Close()
	}
}

// ClearMessages resets history to the single system prompt and zeroes
// the turn counter. No event is emitted.
func (a *Agent) ClearMessages() {
	a.mu.Lock()
	a.messages = []*schema.Message{{Role: schema.System, Content: systemPrompt}}
	a.turns = 0
	a.lastSearch = nil
	a.mu.Unlock()
}

// History returns a snapshot of the conversation history.
func (a *Agent) History() []*schema.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*schema.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// HandleUserInput runs one turn: append the user entry, emit THINKING,
// short-circuit farewells, otherwise execute the turn and emit the
// response events. Failures become a single ERROR event; nothing
// escapes to the caller.
func (a *Agent) HandleUserInput(ctx context.Context, text string) {
	if !a.turnMu.TryLock() {
		a.send(stream.NewError("A turn is already in progress. Wait for the current response to finish.", ""))
		return
	}
	defer a.turnMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Str("sessionID", a.sessionID).Msg("turn panicked")
			a.send(stream.NewError("Something went wrong handling that request.", fmt.Sprint(r)))
		}
	}()

	turnID := ulid.Make().String()

	a.mu.Lock()
	a.messages = append(a.messages, &schema.Message{Role: schema.User, Content: text})
	a.turns++
	turn := a.turns
	a.mu.Unlock()

	a.log.Debug().Str("sessionID", a.sessionID).Str("turnID", turnID).Int("turn", turn).Msg("turn started")
	event.Publish(event.Event{
		Type: event.TurnStarted,
		Data: event.TurnStartedData{SessionID: a.sessionID, Turn: turn},
	})

	a.send(stream.New(stream.Thinking, "Thinking..."))

	if reply, ok := detectFarewell(text); ok {
		a.mu.Lock()
		a.messages = append(a.messages, &schema.Message{Role: schema.Assistant, Content: reply})
		a.mu.Unlock()

		a.send(stream.New(stream.AIResponse, reply))
		a.send(stream.New(stream.End, "Conversation ended"))
		event.Publish(event.Event{
			Type: event.TurnCompleted,
			Data: event.TurnCompletedData{SessionID: a.sessionID, Turn: turn},
		})
		return
	}

	answer, toolCalls, err := a.executeTurn(ctx)
	if err != nil {
		reason := "The request could not be completed."
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			reason = fmt.Sprintf("The %s operation failed.", toolErr.Tool)
		}
		a.log.Error().Err(err).Str("sessionID", a.sessionID).Str("turnID", turnID).Msg("turn failed")
		a.send(stream.NewError(reason, err.Error()))
		event.Publish(event.Event{
			Type: event.TurnFailed,
			Data: event.TurnFailedData{SessionID: a.sessionID, Turn: turn, Reason: err.Error()},
		})
		return
	}

	a.emitAnswer(ctx, answer)
	a.send(stream.New(stream.Done, nil))

	event.Publish(event.Event{
		Type: event.TurnCompleted,
		Data: event.TurnCompletedData{SessionID: a.sessionID, Turn: turn, ToolCalls: toolCalls},
	})
}

// emitAnswer sends the final text, preceded by AUDIO when enabled and
// synthesis succeeds. Synthesis failure downgrades to text plus a
// supplementary ERROR.
func (a *Agent) emitAnswer(ctx context.Context, answer string) {
	if a.AudioEnabled() && a.synth != nil {
		audio, err := a.synth.Synthesize(ctx, answer)
		if err != nil {
			a.log.Warn().Err(err).Str("sessionID", a.sessionID).Msg("speech synthesis failed")
			a.send(stream.NewError("Audio synthesis failed; responding with text only.", err.Error()))
		} else {
			a.send(stream.New(stream.Audio, stream.AudioContent{
				AudioData: base64.StdEncoding.EncodeToString(audio.Data),
				Format:    audio.Format,
				MimeType:  audio.MimeType,
			}))
		}
	}
	a.send(stream.New(stream.AIResponse, answer))
}

// send delivers a message to the current channel, if any.
func (a *Agent) send(m stream.Message) {
	a.mu.Lock()
	ch := a.channel
	a.mu.Unlock()
	if ch != nil {
		ch.Send(m)
	}
}
