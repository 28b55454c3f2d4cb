package chat

import "fmt"

// SessionKey identifies a live session channel: one per (room, user) pair.
type SessionKey struct {
	RoomID   string
	Username string
}

// Complete reports whether both halves of the key are known.
func (k SessionKey) Complete() bool {
	return k.RoomID != "" && k.Username != ""
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s", k.RoomID, k.Username)
}
