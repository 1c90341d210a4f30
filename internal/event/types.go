package event

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	SessionID string `json:"sessionID"`
}

// SessionEvictedData is the data for session.evicted events, published when
// capacity pressure forces out the least-recently-active session.
type SessionEvictedData struct {
	SessionID string `json:"sessionID"`
}

// SessionRemovedData is the data for session.removed events.
type SessionRemovedData struct {
	SessionID string `json:"sessionID"`
}

// SessionSweptData is the data for session.swept events, published when the
// idle sweep removes a session past its idle timeout.
type SessionSweptData struct {
	SessionID string `json:"sessionID"`
	IdleFor   string `json:"idleFor"`
}

// TurnStartedData is the data for turn.started events.
type TurnStartedData struct {
	SessionID string `json:"sessionID"`
	Turn      int    `json:"turn"`
}

// TurnCompletedData is the data for turn.completed events.
type TurnCompletedData struct {
	SessionID string `json:"sessionID"`
	Turn      int    `json:"turn"`
	ToolCalls int    `json:"toolCalls"`
}

// TurnFailedData is the data for turn.failed events.
type TurnFailedData struct {
	SessionID string `json:"sessionID"`
	Turn      int    `json:"turn"`
	Reason    string `json:"reason"`
}
