package chat

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// EventUserList marks a roster update frame.
const EventUserList = "user_list"

// InboundFrame is the union of every JSON object the backend pushes over the
// live channel. Type doubles as the event discriminator and the content kind.
type InboundFrame struct {
	Type      string          `json:"type,omitempty"`
	Users     []string        `json:"users,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Username  string          `json:"username,omitempty"`
	Content   string          `json:"content"`
	CreatedAt string          `json:"created_at,omitempty"`
	Role      string          `json:"role,omitempty"`
	System    bool            `json:"system,omitempty"`
	Image     json.RawMessage `json:"image,omitempty"`
}

// IsRoster reports whether the frame replaces the participant list.
func (f InboundFrame) IsRoster() bool {
	return f.Type == EventUserList
}

// ImageFlag decodes the legacy "image" marker, which older backends send
// either as a JSON bool or as the string "true".
func (f InboundFrame) ImageFlag() bool {
	return decodeFlag(f.Image)
}

func decodeFlag(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		return err == nil && v
	}
	return false
}

// OutboundFrame is what a client writes to the live channel.
type OutboundFrame struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Type    Kind   `json:"type"`
}

// HistoryRecord is one raw row of GET /messages/{roomId}.
type HistoryRecord struct {
	Username  string          `json:"username,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Content   string          `json:"content"`
	Type      string          `json:"type,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	IsImage   json.RawMessage `json:"is_image,omitempty"`
}

// Author returns sender, falling back to username.
func (r HistoryRecord) Author() string {
	if s := strings.TrimSpace(r.Sender); s != "" {
		return s
	}
	return strings.TrimSpace(r.Username)
}

// LegacyImage reports the is_image flag of the earliest schema.
func (r HistoryRecord) LegacyImage() bool {
	return decodeFlag(r.IsImage)
}
