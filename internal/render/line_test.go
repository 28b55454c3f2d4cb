package render

import (
	"strings"
	"testing"
	"time"

	"github.com/chating-app/chating/client/internal/model/chat"
)

func TestLineStripsMarkup(t *testing.T) {
	m := chat.Message{Sender: "kim", Content: `<b>hi</b> &amp; <script>alert(1)</script>bye`, Kind: chat.KindText}
	got := Line(m, "")
	if got != "kim: hi & bye" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestLineMarksSelfAndTime(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 30, 45, 0, time.Local)
	m := chat.Message{Sender: "kim", Content: "hello", Kind: chat.KindText, CreatedAt: ts}
	got := Line(m, "kim")
	if got != "[12:30:45] kim (me): hello" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestBodyMediaKinds(t *testing.T) {
	cases := map[chat.Kind]string{
		chat.KindImage: "[image] http://x/a.png",
		chat.KindVideo: "[video] http://x/a.png",
		chat.KindFile:  "[file] http://x/a.png",
	}
	for kind, want := range cases {
		got := Body(chat.Message{Content: "http://x/a.png", Kind: kind})
		if got != want {
			t.Fatalf("kind %s: got %q want %q", kind, got, want)
		}
	}
}

func TestRoster(t *testing.T) {
	got := Roster([]string{"amy", "<i>zed</i>", ""})
	if !strings.HasSuffix(got, "amy, zed") || !strings.HasPrefix(got, "participants (2)") {
		t.Fatalf("unexpected roster line: %q", got)
	}
}
