package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/render"
	"github.com/chating-app/chating/client/internal/service/api"
	"github.com/chating-app/chating/client/internal/service/channel"
	chatsvc "github.com/chating-app/chating/client/internal/service/chat"
	"github.com/chating-app/chating/client/internal/service/history"
	"github.com/chating-app/chating/client/internal/service/upload"
)

// session is one mounted chat view plus the resources it borrowed.
type session struct {
	view    *chatsvc.View
	release func()
}

func (s *session) Close() {
	s.view.Leave()
	s.release()
}

func openSession(ctx context.Context, onEvent func(chatsvc.Event)) (*session, error) {
	p, err := currentProfile()
	if err != nil {
		return nil, err
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	chOpts, err := channelOptions()
	if err != nil {
		return nil, err
	}
	uploader, release, err := newUploader(ctx, client)
	if err != nil {
		return nil, err
	}

	view := chatsvc.NewView(chatsvc.Options{
		Username: p.Username,
		History:  history.NewLoader(client),
		Channel:  chOpts,
		Relay:    upload.NewRelay(uploader),
		OnEvent:  onEvent,
	})
	return &session{view: view, release: release}, nil
}

type lockedWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lockedWriter) println(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, s)
}

// transcriptPrinter prints the entry snapshot once and then only live
// messages appended after it. Events for entries already in the snapshot
// are dropped.
type transcriptPrinter struct {
	out  *lockedWriter
	self string

	mu      sync.Mutex
	ready   bool
	printed int
}

func (p *transcriptPrinter) replay(messages []chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range messages {
		p.out.println(render.Line(m, p.self))
	}
	p.printed = len(messages)
	p.ready = true
}

func (p *transcriptPrinter) live(e chatsvc.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready || e.Index < p.printed {
		return
	}
	p.out.println(render.Line(e.Message, p.self))
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <room>",
		Short: "Join a room interactively (/file <path>, /who, /quit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := &lockedWriter{out: cmd.OutOrStdout()}
			closed := make(chan error, 1)
			transcript := &transcriptPrinter{out: out}

			sess, err := openSession(ctx, func(e chatsvc.Event) {
				switch e.Type {
				case chatsvc.EventMessage:
					transcript.live(e)
				case chatsvc.EventRoster:
					out.println(render.Roster(e.Users))
				case chatsvc.EventHistory:
					if e.Err != nil {
						out.println("(history unavailable)")
					}
				case chatsvc.EventClosed:
					select {
					case closed <- e.Err:
					default:
					}
				}
			})
			if err != nil {
				return err
			}
			defer sess.Close()
			transcript.self = sess.view.Username()

			if err := sess.view.Enter(ctx, args[0]); err != nil {
				return err
			}
			transcript.replay(sess.view.Messages())

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case err := <-closed:
					if err != nil {
						return fmt.Errorf("connection closed: %w", err)
					}
					return errors.New("connection closed")
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if quit := handleInput(ctx, sess.view, out, line); quit {
						return nil
					}
				}
			}
		},
	}
}

// handleInput runs one line typed in the interactive session.
func handleInput(ctx context.Context, view *chatsvc.View, out *lockedWriter, line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return false
	case trimmed == "/quit":
		return true
	case trimmed == "/who":
		out.println(render.Roster(view.Participants()))
	case strings.HasPrefix(trimmed, "/file "):
		path := strings.TrimSpace(strings.TrimPrefix(trimmed, "/file "))
		if err := sendFile(ctx, view, path); err != nil {
			out.println("upload failed: " + api.UserMessage(err, "파일 업로드 실패"))
		}
	default:
		if _, err := view.SendText(line); err != nil {
			out.println("send failed: " + api.UserMessage(err, err.Error()))
		}
	}
	return false
}

func sendFile(ctx context.Context, view *chatsvc.View, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = view.SendFile(ctx, path, f)
	return err
}

// echoWatcher collects the contents of the caller's own echoed messages.
type echoWatcher struct {
	self   string
	echoes chan string
}

func newEchoWatcher() *echoWatcher {
	return &echoWatcher{echoes: make(chan string, 32)}
}

func (w *echoWatcher) onEvent(e chatsvc.Event) {
	if e.Type != chatsvc.EventMessage || e.Message.Sender != w.self {
		return
	}
	select {
	case w.echoes <- e.Message.Content:
	default:
	}
}

func (w *echoWatcher) wait(ctx context.Context, content string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case got := <-w.echoes:
			if got == content {
				return true
			}
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func newSendCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "send <room> <text>",
		Short: "Send one text message and wait for its echo",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			watcher := newEchoWatcher()
			sess, err := openSession(ctx, watcher.onEvent)
			if err != nil {
				return err
			}
			defer sess.Close()
			watcher.self = sess.view.Username()

			if err := sess.view.Enter(ctx, args[0]); err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if _, err := sess.view.SendText(text); err != nil {
				return err
			}
			if !watcher.wait(ctx, text, wait) {
				log.Warn().Str("room", args[0]).Msg("no echo received; the message may not have been delivered")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the server echo")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "upload <room> <path>",
		Short: "Upload a file and post its URL to the room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			watcher := newEchoWatcher()
			sess, err := openSession(ctx, watcher.onEvent)
			if err != nil {
				return err
			}
			defer sess.Close()
			watcher.self = sess.view.Username()

			if err := sess.view.Enter(ctx, args[0]); err != nil {
				return err
			}
			if sess.view.ChannelState() != channel.StateOpen {
				return channel.ErrNotOpen
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			frame, err := sess.view.SendFile(ctx, args[1], f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Body(chat.Message{Content: frame.Content, Kind: frame.Type}))
			if !watcher.wait(ctx, frame.Content, wait) {
				log.Warn().Str("room", args[0]).Msg("no echo received for upload")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the server echo")
	return cmd
}
