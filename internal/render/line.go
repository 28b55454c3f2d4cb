package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/chating-app/chating/client/internal/model/chat"
)

// Strict policy: terminals get plain text only.
var textPolicy = bluemonday.StrictPolicy()

// TimeLayout is how timestamps appear in rendered lines.
const TimeLayout = "15:04:05"

// Sanitize strips markup and resolves entities so text prints as typed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(textPolicy.Sanitize(s))
}

// Line formats one transcript entry. Entries authored by self are marked
// with "(me)"; media kinds are shown as a tag followed by the URL.
func Line(m chat.Message, self string) string {
	var b strings.Builder

	if !m.CreatedAt.IsZero() {
		b.WriteString("[")
		b.WriteString(m.CreatedAt.In(time.Local).Format(TimeLayout))
		b.WriteString("] ")
	}

	sender := Sanitize(m.Sender)
	if sender == "" {
		sender = "?"
	}
	b.WriteString(sender)
	if self != "" && m.Sender == self {
		b.WriteString(" (me)")
	}
	b.WriteString(": ")
	b.WriteString(Body(m))
	return b.String()
}

// Body renders only the content part of an entry.
func Body(m chat.Message) string {
	switch m.Kind {
	case chat.KindImage, chat.KindVideo, chat.KindFile:
		return fmt.Sprintf("[%s] %s", m.Kind, strings.TrimSpace(m.Content))
	default:
		return Sanitize(m.Content)
	}
}

// Roster renders the participant list on one line.
func Roster(users []string) string {
	clean := make([]string, 0, len(users))
	for _, u := range users {
		if s := Sanitize(u); s != "" {
			clean = append(clean, s)
		}
	}
	return fmt.Sprintf("participants (%d): %s", len(clean), strings.Join(clean, ", "))
}
