// Package stream defines the typed messages an agent pushes to its client
// and the output channel they travel on.
package stream

import "time"

// MessageType discriminates the payload of a Message.
type MessageType string

const (
	Connected  MessageType = "CONNECTED"
	User       MessageType = "USER"
	Thinking   MessageType = "THINKING"
	AIResponse MessageType = "AI_RESPONSE"
	Audio      MessageType = "AUDIO"
	Error      MessageType = "ERROR"
	Done       MessageType = "DONE"
	End        MessageType = "END"
)

// Message is one server-to-client event. Content is plain text for most
// types; AUDIO carries an AudioContent and ERROR an ErrorContent.
type Message struct {
	Type      MessageType `json:"type"`
	Content   any         `json:"content"`
	ToolName  string      `json:"toolName,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// AudioContent is the payload of an AUDIO message.
type AudioContent struct {
	AudioData string `json:"audioData"` // base64
	Format    string `json:"format"`
	MimeType  string `json:"mimeType"`
}

// ErrorContent is the payload of an ERROR message.
type ErrorContent struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// New builds a Message of the given type with the current timestamp.
func New(t MessageType, content any) Message {
	return Message{
		Type:      t,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewError builds an ERROR message.
func NewError(message, details string) Message {
	return New(Error, ErrorContent{Message: message, Details: details})
}
