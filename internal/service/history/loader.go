package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chating-app/chating/client/internal/analysis/content"
	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/service/api"
)

// ErrMalformedHistory is returned when the backend answers with something
// other than a JSON array of message records.
var ErrMalformedHistory = errors.New("history response is not an array")

// Fetcher is the slice of api.Client the loader needs.
type Fetcher interface {
	DoJSON(ctx context.Context, method string, in, out any, segments ...string) error
}

// Loader reads persisted room transcripts.
type Loader struct {
	client Fetcher
	prefix []string
}

// NewLoader reads GET {base}/messages/{roomId}.
func NewLoader(client Fetcher) *Loader {
	return &Loader{client: client, prefix: []string{"messages"}}
}

// NewAdminLoader reads GET {base}/admin/messages/{roomId}.
func NewAdminLoader(client Fetcher) *Loader {
	return &Loader{client: client, prefix: []string{"admin", "messages"}}
}

// Load issues one request and normalises the records. On any failure it
// returns an empty, non-nil slice together with the error; callers treat the
// error as a logged, non-fatal notice.
func (l *Loader) Load(ctx context.Context, roomID string) ([]chat.Message, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return []chat.Message{}, api.Required("room id")
	}

	segments := append(append([]string(nil), l.prefix...), roomID)
	var raw json.RawMessage
	if err := l.client.DoJSON(ctx, http.MethodGet, nil, &raw, segments...); err != nil {
		return []chat.Message{}, fmt.Errorf("load history for room %s: %w", roomID, err)
	}

	return Decode(raw)
}

// Decode converts a raw history body into messages.
func Decode(raw json.RawMessage) ([]chat.Message, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return []chat.Message{}, ErrMalformedHistory
	}

	var records []chat.HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return []chat.Message{}, fmt.Errorf("%w: %v", ErrMalformedHistory, err)
	}

	messages := make([]chat.Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, Normalize(record))
	}
	return messages, nil
}

// Normalize maps one raw record to the session's message shape. An explicit
// type wins; otherwise the legacy is_image flag, then the suffix classifier.
func Normalize(record chat.HistoryRecord) chat.Message {
	kind, ok := chat.ParseKind(record.Type)
	switch {
	case ok:
	case record.LegacyImage():
		kind = content.ForLegacyMedia(record.Content)
	default:
		kind = content.ForText(record.Content)
	}

	createdAt, _ := chat.ParseTimestamp(record.CreatedAt)
	return chat.Message{
		Sender:    record.Author(),
		Content:   record.Content,
		Kind:      kind,
		CreatedAt: createdAt,
	}
}
