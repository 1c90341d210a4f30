package stream

import (
	"sync"

	"github.com/echomail-ai/echomail/internal/logging"
)

// channelBuffer is the event buffer per connection. Small, for low-latency
// streaming; senders drop rather than block when a client stops reading.
const channelBuffer = 32

// Channel is a one-way, server-to-client event stream bound to a single
// connection. Detaching a channel from an agent does not close it; the
// reader side drains until Close.
type Channel struct {
	mu     sync.Mutex
	ch     chan Message
	closed bool
}

// NewChannel creates a buffered output channel.
func NewChannel() *Channel {
	return &Channel{ch: make(chan Message, channelBuffer)}
}

// Send delivers a message to the channel. It never blocks: when the channel
// is closed or its buffer is full the message is dropped and Send reports
// false.
func (c *Channel) Send(m Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.ch <- m:
		return true
	default:
		logging.Warn().
			Str("messageType", string(m.Type)).
			Msg("stream message dropped: channel full")
		return false
	}
}

// Recv returns the receive side of the channel. The returned channel is
// closed when Close is called.
func (c *Channel) Recv() <-chan Message {
	return c.ch
}

// Close closes the channel. It is safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.ch)
	return nil
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
