package session

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/echomail-ai/echomail/internal/agent"
	"github.com/echomail-ai/echomail/internal/event"
	"github.com/echomail-ai/echomail/internal/logging"
	"github.com/echomail-ai/echomail/internal/stream"
)

// ErrAtCapacity is returned when a session cannot be inserted even after
// eviction.
var ErrAtCapacity = errors.New("session registry at capacity")

const (
	defaultMaxSessions   = 100
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Session is one live entry in the registry: the agent, the channel the
// current client reads from, and the activity clock the sweep consults.
type Session struct {
	ID      string
	Agent   *agent.Agent
	Channel *stream.Channel

	CreatedAt    time.Time
	lastActivity time.Time
}

// Options configures a Registry. NewAgent builds the agent for a fresh
// session, bound to the channel the registry created for it.
type Options struct {
	MaxSessions   int
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	NewAgent      func(sessionID string, ch *stream.Channel) *agent.Agent
}

// Update carries partial changes for Registry.Update. Nil fields are
// left untouched.
type Update struct {
	Channel      *stream.Channel
	AudioEnabled *bool
}

// Registry holds all live sessions, bounded by capacity with
// least-recently-active eviction, and runs the idle sweep that is the
// sole destroyer of abandoned sessions.
type Registry struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry and starts its background sweep.
func NewRegistry(opts Options) *Registry {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	r := &Registry{
		opts:     opts,
		log:      logging.Component("session"),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Create inserts a new session, evicting the least-recently-active one
// under capacity pressure. An existing session with the same id is
// returned untouched.
func (r *Registry) Create(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastActivity = time.Now()
		return s, nil
	}

	if len(r.sessions) >= r.opts.MaxSessions {
		r.evictOldestLocked()
	}
	if len(r.sessions) >= r.opts.MaxSessions {
		return nil, ErrAtCapacity
	}

	ch := stream.NewChannel()
	now := time.Now()
	s := &Session{
		ID:           id,
		Agent:        r.opts.NewAgent(id, ch),
		Channel:      ch,
		CreatedAt:    now,
		lastActivity: now,
	}
	r.sessions[id] = s

	r.log.Info().Str("sessionID", id).Int("total", len(r.sessions)).Msg("session created")
	event.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{SessionID: id},
	})
	return s, nil
}

// Get returns the session and touches its activity clock.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.lastActivity = time.Now()
	}
	return s, ok
}

// Update merges partial changes into a session and refreshes its
// activity clock. A new channel replaces the agent's output stream
// without closing the old one; a detached reader drains what it has.
func (r *Registry) Update(id string, u Update) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if u.Channel != nil {
		s.Channel = u.Channel
	}
	s.lastActivity = time.Now()
	agentRef := s.Agent
	r.mu.Unlock()

	if u.Channel != nil {
		agentRef.UpdateStream(u.Channel)
	}
	if u.AudioEnabled != nil {
		agentRef.SetAudioEnabled(*u.AudioEnabled)
	}
	return true
}

// Remove deletes a session and closes its channel best-effort.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.closeQuietly(s)
	r.log.Info().Str("sessionID", id).Msg("session removed")
	event.Publish(event.Event{
		Type: event.SessionRemoved,
		Data: event.SessionRemovedData{SessionID: id},
	})
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Destroy stops the sweep and removes every session. Safe to call more
// than once.
func (r *Registry) Destroy() {
	r.stopOnce.Do(func() {
		close(r.stop)
		<-r.done
	})

	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		remaining = append(remaining, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range remaining {
		r.closeQuietly(s)
	}
	if len(remaining) > 0 {
		r.log.Info().Int("count", len(remaining)).Msg("registry destroyed")
	}
}

// evictOldestLocked removes the least-recently-active session. Caller
// holds the lock.
func (r *Registry) evictOldestLocked() {
	var oldest *Session
	for _, s := range r.sessions {
		if oldest == nil || s.lastActivity.Before(oldest.lastActivity) {
			oldest = s
		}
	}
	if oldest == nil {
		return
	}

	delete(r.sessions, oldest.ID)
	go func(s *Session) {
		r.closeQuietly(s)
		r.log.Warn().Str("sessionID", s.ID).Msg("session evicted under capacity pressure")
		event.Publish(event.Event{
			Type: event.SessionEvicted,
			Data: event.SessionEvictedData{SessionID: s.ID},
		})
	}(oldest)
}

func (r *Registry) sweepLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep removes sessions idle past the timeout. A panic from any single
// session's teardown is contained so the sweep survives.
func (r *Registry) sweep() {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("sweep panicked")
		}
	}()

	now := time.Now()

	r.mu.Lock()
	var idle []*Session
	for _, s := range r.sessions {
		if now.Sub(s.lastActivity) > r.opts.IdleTimeout {
			idle = append(idle, s)
			delete(r.sessions, s.ID)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		idleFor := now.Sub(s.lastActivity).Round(time.Second)
		r.closeQuietly(s)
		r.log.Info().Str("sessionID", s.ID).Dur("idleFor", idleFor).Msg("idle session swept")
		event.Publish(event.Event{
			Type: event.SessionSwept,
			Data: event.SessionSweptData{SessionID: s.ID, IdleFor: idleFor.String()},
		})
	}
}

// closeQuietly tears down a session's agent without letting a panic
// escape the registry.
func (r *Registry) closeQuietly(s *Session) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("sessionID", s.ID).Msg("session teardown panicked")
		}
	}()
	if s.Agent != nil {
		s.Agent.Close()
		return
	}
	if s.Channel != nil {
		_ = s.Channel.Close()
	}
}
