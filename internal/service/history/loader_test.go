package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chating-app/chating/client/internal/fakebackend"
	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/service/api"
	"github.com/chating-app/chating/client/internal/service/history"
)

func newLoader(t *testing.T) (*fakebackend.Backend, *history.Loader) {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	client, err := api.New(backend.URL())
	if err != nil {
		t.Fatalf("api.New err: %v", err)
	}
	return backend, history.NewLoader(client)
}

func TestLoadNormalisesRecords(t *testing.T) {
	backend, loader := newLoader(t)
	backend.AddHistory("r1",
		chat.HistoryRecord{Username: "kim", Content: "hello", CreatedAt: "2025-01-02T03:04:05.123456"},
		chat.HistoryRecord{Sender: "lee", Content: "http://x/y.JPG"},
		chat.HistoryRecord{Username: "kim", Content: "http://x/clip", IsImage: []byte(`"true"`)},
		chat.HistoryRecord{Username: "kim", Content: "report.mp4", Type: "file"},
	)

	msgs, err := loader.Load(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}

	want := []chat.Kind{chat.KindText, chat.KindImage, chat.KindImage, chat.KindFile}
	for i, m := range msgs {
		if m.Kind != want[i] {
			t.Fatalf("message %d: kind %s, want %s", i, m.Kind, want[i])
		}
	}
	if msgs[1].Sender != "lee" {
		t.Fatalf("expected sender fallback, got %q", msgs[1].Sender)
	}
	wantTime := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)
	if !msgs[0].CreatedAt.Equal(wantTime) {
		t.Fatalf("unexpected timestamp: %v", msgs[0].CreatedAt)
	}
}

func TestLoadEmptyRoom(t *testing.T) {
	_, loader := newLoader(t)
	msgs, err := loader.Load(context.Background(), "nobody-here")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", msgs)
	}
}

func TestLoadMalformedBody(t *testing.T) {
	backend, loader := newLoader(t)
	backend.SetRawHistory("r1", `{"messages":[]}`)

	msgs, err := loader.Load(context.Background(), "r1")
	if !errors.Is(err, history.ErrMalformedHistory) {
		t.Fatalf("expected ErrMalformedHistory, got %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", msgs)
	}
}

func TestLoadRequiresRoom(t *testing.T) {
	backend, loader := newLoader(t)
	if _, err := loader.Load(context.Background(), " "); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if backend.Requests("*") != 0 {
		t.Fatal("expected no request for blank room")
	}
}

func TestAdminLoaderUsesAdminRoute(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	client, _ := api.New(backend.URL())

	if _, err := history.NewAdminLoader(client).Load(context.Background(), "r9"); err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if backend.Requests("GET /admin/messages/r9") != 1 {
		t.Fatal("expected admin history route to be used")
	}
}
