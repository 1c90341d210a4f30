package server

import (
	"context"
	"net/http"
	"time"

	"github.com/echomail-ai/echomail/internal/session"
	"github.com/echomail-ai/echomail/internal/stream"
)

// handleChat is the streaming gateway: it binds the caller's session to
// this connection, optionally starts a turn for the message query
// param, and relays the agent's events as SSE until the turn ends or
// the client goes away.
//
// A client abort only detaches the channel; the conversation and any
// in-flight turn survive for the next reconnect. The idle sweep is what
// eventually destroys an abandoned session.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	query := r.URL.Query()
	message := query.Get("message")
	clearHistory := queryFlag(query.Get("clear"))

	sess, fresh, err := s.attachSession(identity)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeOverCapacity, "Too many active sessions; try again shortly")
		return
	}
	ch := sess.Channel
	if !fresh {
		// Reconnect: bind a new channel without disturbing an in-flight
		// turn. The old channel stays open for whoever still reads it.
		ch = stream.NewChannel()
		s.registry.Update(identity, session.Update{Channel: ch})
	}

	if audio := query.Get("audio"); audio != "" {
		enabled := queryFlag(audio)
		s.registry.Update(identity, session.Update{AudioEnabled: &enabled})
	}
	if clearHistory {
		sess.Agent.ClearMessages()
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if err := sse.writeMessage(stream.New(stream.Connected, "Connected")); err != nil {
		return
	}

	if message != "" {
		if err := sse.writeMessage(stream.New(stream.User, message)); err != nil {
			return
		}
		// The turn runs on its own context: the client dropping the
		// stream must not cancel it.
		go sess.Agent.HandleUserInput(context.Background(), message)
	}

	s.relay(r, sse, ch, message != "")
}

// relay pumps channel messages to the SSE writer. For message-bearing
// requests the stream closes after the turn's terminal event; a bare
// attach streams until the client disconnects.
func (s *Server) relay(r *http.Request, sse *sseWriter, ch *stream.Channel, singleTurn bool) {
	heartbeat := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	var setup <-chan time.Time
	if singleTurn {
		t := time.NewTimer(s.config.SetupTimeout)
		defer t.Stop()
		setup = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-setup:
			s.log.Warn().Msg("stream setup timed out waiting for first event")
			_ = sse.writeMessage(stream.NewError("Timed out waiting for the agent to respond.", ""))
			return
		case m, ok := <-ch.Recv():
			if !ok {
				return
			}
			setup = nil
			if err := sse.writeMessage(m); err != nil {
				return
			}
			if singleTurn && (m.Type == stream.Done || m.Type == stream.End) {
				return
			}
		case <-heartbeat.C:
			if err := sse.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}

// attachSession returns the caller's session, creating it when absent.
// fresh reports whether the session (and its channel) were just made
// for this connection.
func (s *Server) attachSession(id string) (*session.Session, bool, error) {
	if sess, ok := s.registry.Get(id); ok {
		return sess, false, nil
	}
	sess, err := s.registry.Create(id)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// handleClear resets the caller's conversation without opening a
// stream.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	cleared := false
	if sess, ok := s.registry.Get(identity); ok {
		sess.Agent.ClearMessages()
		cleared = true
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cleared": cleared})
}

// handleStatus reports whether the caller has a live session and
// whether a turn is in flight.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	status := map[string]any{"active": false, "turnInProgress": false}
	if sess, ok := s.registry.Get(identity); ok {
		status["active"] = true
		status["turnInProgress"] = sess.Agent.TurnInProgress()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.registry.Len()})
}

func queryFlag(v string) bool {
	return v == "true" || v == "1"
}
