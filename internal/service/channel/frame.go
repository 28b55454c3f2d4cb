package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chating-app/chating/client/internal/analysis/content"
	"github.com/chating-app/chating/client/internal/model/chat"
)

// ErrMalformedFrame marks an inbound frame that could not be understood.
// Such frames are dropped; they never close the channel.
var ErrMalformedFrame = errors.New("malformed frame")

// Event is one decoded inbound frame: either a roster replacement or a chat
// message.
type Event struct {
	Roster   []string
	IsRoster bool
	Message  chat.Message
}

// DecodeFrame parses one inbound text frame. receivedAt stands in for a
// missing or unreadable created_at.
func DecodeFrame(data []byte, receivedAt time.Time) (Event, error) {
	var frame chat.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if frame.IsRoster() {
		users := make([]string, 0, len(frame.Users))
		for _, u := range frame.Users {
			if u = strings.TrimSpace(u); u != "" {
				users = append(users, u)
			}
		}
		return Event{IsRoster: true, Roster: users}, nil
	}

	sender := strings.TrimSpace(frame.Sender)
	if sender == "" {
		sender = strings.TrimSpace(frame.Username)
	}
	if frame.System {
		sender = chat.SystemSender
	}
	if sender == "" {
		return Event{}, fmt.Errorf("%w: missing sender", ErrMalformedFrame)
	}

	kind, ok := chat.ParseKind(frame.Type)
	switch {
	case ok:
	case frame.System:
		kind = chat.KindText
	case frame.ImageFlag():
		kind = content.ForLegacyMedia(frame.Content)
	default:
		kind = content.ForText(frame.Content)
	}

	createdAt, ok := chat.ParseTimestamp(frame.CreatedAt)
	if !ok {
		createdAt = receivedAt
	}

	return Event{Message: chat.Message{
		Sender:    sender,
		Content:   frame.Content,
		Kind:      kind,
		CreatedAt: createdAt,
	}}, nil
}
