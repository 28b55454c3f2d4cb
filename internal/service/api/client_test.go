package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestNewRejectsNonHTTPBase(t *testing.T) {
	for _, raw := range []string{"", "ws://host", "localhost:8000", "http://"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestJoinURLEscapesSegments(t *testing.T) {
	base, _ := url.Parse("http://host/api")
	got := JoinURL(base, "rooms", "a b/c")
	if got != "http://host/api/rooms/a%20b%2Fc" {
		t.Fatalf("unexpected url: %s", got)
	}
}

func TestWebSocketBase(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8000":   "ws://localhost:8000",
		"https://chat.example/v1": "wss://chat.example/v1",
	}
	for in, want := range cases {
		u, err := WebSocketBase(in)
		if err != nil {
			t.Fatalf("WebSocketBase(%q) err: %v", in, err)
		}
		if u.String() != want {
			t.Fatalf("WebSocketBase(%q) = %s, want %s", in, u, want)
		}
	}

	if _, err := ParseWebSocketBase("http://host"); err == nil {
		t.Fatal("expected ParseWebSocketBase to reject http")
	}
}

func TestDoJSONStampsRequestID(t *testing.T) {
	var gotID, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"room_id":"abc"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	var out struct {
		RoomID string `json:"room_id"`
	}
	if err := c.DoJSON(context.Background(), http.MethodPost, map[string]string{"username": "kim"}, &out, "rooms"); err != nil {
		t.Fatalf("DoJSON err: %v", err)
	}
	if out.RoomID != "abc" {
		t.Fatalf("unexpected body: %+v", out)
	}
	if len(gotID) != 36 || gotType != "application/json" {
		t.Fatalf("unexpected headers: id=%q type=%q", gotID, gotType)
	}
}

func TestDoJSONEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, _ := New(srv.URL)
	var out map[string]any
	err := c.DoJSON(context.Background(), http.MethodGet, nil, &out, "x")
	if !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestErrorDecoding(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"이미 존재하는 아이디입니다"}`, "이미 존재하는 아이디입니다"},
		{"error field", http.StatusForbidden, `{"error":"forbidden room"}`, "forbidden room"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{"plain text", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty", http.StatusNotFound, "", "Not Found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, _ := New(srv.URL)
			err := c.DoJSON(context.Background(), http.MethodGet, nil, nil, "x")
			if !IsStatus(err, tc.status) {
				t.Fatalf("expected status %d, got %v", tc.status, err)
			}
			if got := UserMessage(err, "fallback"); got != tc.want {
				t.Fatalf("UserMessage = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUserMessageFallbacks(t *testing.T) {
	if got := UserMessage(nil, "x"); got != "" {
		t.Fatalf("expected empty for nil, got %q", got)
	}
	if got := UserMessage(errors.New("dial tcp: refused"), "서버 연결 실패"); got != "서버 연결 실패" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := UserMessage(Required("password"), "x"); got != "validation failed: password is required" {
		t.Fatalf("unexpected validation message: %q", got)
	}
}
