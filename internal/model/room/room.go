package room

import (
	"time"

	"github.com/chating-app/chating/client/internal/model/chat"
)

// Room is the client-side view of a chat room owned by a user.
// CreatedAt is kept as sent; the backend emits zone-less ISO strings.
type Room struct {
	RoomID    string `json:"room_id"`
	Owner     string `json:"username,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Active    bool   `json:"is_active"`
}

// Created parses CreatedAt, returning the zero time when absent or invalid.
func (r Room) Created() time.Time {
	ts, _ := chat.ParseTimestamp(r.CreatedAt)
	return ts
}

// IDs extracts the room identifiers in order.
func IDs(rooms []Room) []string {
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.RoomID)
	}
	return ids
}
