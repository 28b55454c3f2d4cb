package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chating-app/chating/client/internal/fakebackend"
	"github.com/chating-app/chating/client/internal/model/account"
	"github.com/chating-app/chating/client/internal/service/profile"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsAgainstDevBackend(t *testing.T) {
	backend := fakebackend.New()
	defer backend.Close()
	backend.AddUser("kim", "Kim", "pw")

	for _, key := range []string{"CHAT_CONFIG", "CHAT_WS_URL", "CHAT_UPLOAD_MODE", "CHAT_MAX_ROOMS"} {
		t.Setenv(key, "")
	}
	t.Setenv("CHAT_BASE_URL", backend.URL())
	t.Setenv("CHAT_DATA_DIR", t.TempDir())
	t.Setenv("CHAT_LOG_LEVEL", "error")

	if _, err := run(t, "whoami"); err == nil {
		t.Fatal("expected whoami to fail before login")
	}

	if _, err := run(t, "login", "kim", "--password", "pw"); err != nil {
		t.Fatalf("login err: %v", err)
	}

	out, err := run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami err: %v", err)
	}
	if strings.TrimSpace(out) != "kim (Kim)" {
		t.Fatalf("unexpected whoami output: %q", out)
	}

	out, err = run(t, "rooms", "create")
	if err != nil {
		t.Fatalf("rooms create err: %v", err)
	}
	id := strings.TrimSpace(out)
	if !backend.HasRoom(id) {
		t.Fatalf("room %q not created on backend", id)
	}

	if _, err := run(t, "send", id, "hello", "there", "--wait", "2s"); err != nil {
		t.Fatalf("send err: %v", err)
	}
	hist := backend.History(id)
	if len(hist) != 1 || hist[0].Content != "hello there" || hist[0].Type != "text" {
		t.Fatalf("unexpected backend history: %+v", hist)
	}

	out, err = run(t, "history", id)
	if err != nil {
		t.Fatalf("history err: %v", err)
	}
	if !strings.Contains(out, "kim (me): hello there") {
		t.Fatalf("unexpected history output: %q", out)
	}

	if _, err := run(t, "logout"); err != nil {
		t.Fatalf("logout err: %v", err)
	}
	if _, err := run(t, "whoami"); err == nil {
		t.Fatal("expected whoami to fail after logout")
	}
}

// TestChatPrintsJoinNoticeOnce covers a backend that greets every connection
// while the history request is still in flight.
func TestChatPrintsJoinNoticeOnce(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/{roomID}", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sender":"lee","content":"earlier","type":"text","created_at":"2025-03-01T09:00:00"}]`))
	})
	mux.HandleFunc("GET /ws/{roomID}/{username}", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if err := conn.WriteJSON(map[string]any{"system": true, "content": "you are host"}); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, key := range []string{"CHAT_CONFIG", "CHAT_WS_URL", "CHAT_UPLOAD_MODE", "CHAT_MAX_ROOMS"} {
		t.Setenv(key, "")
	}
	dataDir := t.TempDir()
	t.Setenv("CHAT_BASE_URL", srv.URL)
	t.Setenv("CHAT_DATA_DIR", dataDir)
	t.Setenv("CHAT_LOG_LEVEL", "error")

	store, err := profile.Open(dataDir)
	if err != nil {
		t.Fatalf("open profile store: %v", err)
	}
	if err := store.Save(account.Profile{Username: "kim"}); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close profile store: %v", err)
	}

	out, err := run(t, "chat", "room1")
	if err != nil {
		t.Fatalf("chat err: %v", err)
	}
	if n := strings.Count(out, "system: you are host"); n != 1 {
		t.Fatalf("join notice printed %d times: %q", n, out)
	}
	history := strings.Index(out, "lee: earlier")
	notice := strings.Index(out, "system: you are host")
	if history < 0 || history > notice {
		t.Fatalf("history should precede the live notice: %q", out)
	}
}
