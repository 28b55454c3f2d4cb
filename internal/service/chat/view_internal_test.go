package chat

import (
	"errors"
	"testing"

	"github.com/chating-app/chating/client/internal/model/chat"
)

func TestStaleHandlerEmitsNothing(t *testing.T) {
	var got []Event
	v := NewView(Options{Username: "kim", OnEvent: func(e Event) { got = append(got, e) }})

	v.mu.Lock()
	gen := v.gen
	v.mu.Unlock()
	h := v.handler(gen, "old-room")

	v.mu.Lock()
	v.gen++
	v.mu.Unlock()

	h.OnMessage(chat.Message{Sender: "lee", Content: "late"})
	h.OnRoster([]string{"lee"})
	h.OnProtocolError(errors.New("bad frame"))
	h.OnClosed(errors.New("gone"))

	if len(got) != 0 {
		t.Fatalf("superseded channel emitted %d events: %+v", len(got), got)
	}
	if v.MessageCount() != 0 || len(v.Participants()) != 0 {
		t.Fatal("superseded channel touched the room state")
	}
}
