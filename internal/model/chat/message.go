package chat

import (
	"strings"
	"time"
)

// Kind is the classified content type of a message.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindFile  Kind = "file"
)

// ParseKind accepts the kinds the backend and the frontends agree on.
func ParseKind(raw string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindText, KindImage, KindVideo, KindFile:
		return k, true
	default:
		return "", false
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := ParseKind(string(k))
	return ok
}

// IsMedia reports whether the content is a link to an image or video.
func (k Kind) IsMedia() bool {
	return k == KindImage || k == KindVideo
}

// Message is one entry of a room transcript. Immutable once appended.
type Message struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// SystemSender names notices that the backend emits on its own behalf.
const SystemSender = "system"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses the creation times the backend produces. Python's
// isoformat omits the zone for naive datetimes; those are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
