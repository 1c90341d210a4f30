package stream

import "testing"

func TestSendAndRecv(t *testing.T) {
	ch := NewChannel()

	if !ch.Send(New(Thinking, "Thinking...")) {
		t.Fatal("Send on open channel should succeed")
	}

	m := <-ch.Recv()
	if m.Type != Thinking || m.Content != "Thinking..." {
		t.Errorf("unexpected message: %+v", m)
	}
	if m.Timestamp == 0 {
		t.Error("New should stamp the message")
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	ch := NewChannel()

	for i := 0; i < channelBuffer; i++ {
		if !ch.Send(New(AIResponse, "x")) {
			t.Fatalf("send %d should fit in the buffer", i)
		}
	}
	if ch.Send(New(AIResponse, "overflow")) {
		t.Error("Send on a full channel should drop and report false")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ch := NewChannel()

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !ch.Closed() {
		t.Error("Closed should report true")
	}
	if ch.Send(New(Done, nil)) {
		t.Error("Send after Close should report false")
	}
	if _, ok := <-ch.Recv(); ok {
		t.Error("Recv should be closed")
	}
}

func TestNewError(t *testing.T) {
	m := NewError("boom", "details")
	if m.Type != Error {
		t.Errorf("type = %v, want ERROR", m.Type)
	}
	content, ok := m.Content.(ErrorContent)
	if !ok || content.Message != "boom" || content.Details != "details" {
		t.Errorf("unexpected content: %#v", m.Content)
	}
}
