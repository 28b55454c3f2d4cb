package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/chating-app/chating/client/internal/analysis/content"
	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/service/api"
	"github.com/chating-app/chating/client/internal/service/channel"
	"github.com/chating-app/chating/client/internal/service/upload"
)

var ErrNoRelay = errors.New("file upload is not configured")

// ErrSuperseded is returned by Enter when Leave or another Enter ran before
// the new channel was registered.
var ErrSuperseded = errors.New("room entry superseded")

// HistoryLoader reads a room's persisted transcript.
type HistoryLoader interface {
	Load(ctx context.Context, roomID string) ([]chat.Message, error)
}

// EventType tags view events.
type EventType string

const (
	EventMessage EventType = "message"
	EventRoster  EventType = "roster"
	EventHistory EventType = "history"
	EventClosed  EventType = "closed"
	EventDropped EventType = "dropped"
)

// Event is a change the view reports to its presenter.
type Event struct {
	Type    EventType
	RoomID  string
	Message chat.Message
	// Index is the transcript position Message was appended at. History
	// seeded later shifts it; once Enter has returned it is stable, so a
	// presenter that printed Messages() can skip events below that length.
	Index int
	Users []string
	Count int
	Err   error
}

// Options wires a view to its collaborators.
type Options struct {
	Username string
	History  HistoryLoader
	Channel  channel.Options
	Registry *channel.Registry
	Relay    *upload.Relay
	// OnEvent runs synchronously on the goroutine that produced the event.
	// It must not call Enter or Leave.
	OnEvent func(Event)
}

// View is the chat session view-model of one user: it owns the live channel,
// the transcript and the roster of whichever room is currently entered.
type View struct {
	id   string
	opts Options

	log    *Log
	roster *Roster

	mu      sync.Mutex
	roomID  string
	gen     uint64
	cancel  context.CancelFunc
	current *channel.Channel
}

// NewView 创建聊天视图
func NewView(opts Options) *View {
	if opts.Registry == nil {
		opts.Registry = channel.NewRegistry()
	}
	return &View{
		id:     uuid.NewString(),
		opts:   opts,
		log:    NewLog(),
		roster: NewRoster(),
	}
}

// ID identifies the view inside its channel registry.
func (v *View) ID() string { return v.id }

// Username is the identity the view sends as.
func (v *View) Username() string { return v.opts.Username }

// RoomID is the room currently entered, or "".
func (v *View) RoomID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.roomID
}

// Messages returns the transcript of the current room.
func (v *View) Messages() []chat.Message { return v.log.Snapshot() }

// MessageCount is the transcript length.
func (v *View) MessageCount() int { return v.log.Len() }

// Participants returns the current roster.
func (v *View) Participants() []string { return v.roster.List() }

// ChannelState reports the state of the current channel.
func (v *View) ChannelState() channel.State {
	v.mu.Lock()
	ch := v.current
	v.mu.Unlock()
	if ch == nil {
		return channel.StateIdle
	}
	return ch.State()
}

// Enter switches the view to roomID. The previous channel is closed to
// completion before anything else happens; then history is loaded while the
// new channel connects. A history failure is logged and leaves the
// transcript live but empty of history; a dial failure is returned.
func (v *View) Enter(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	key := chat.SessionKey{RoomID: roomID, Username: v.opts.Username}
	if !key.Complete() {
		return channel.ErrMissingKey
	}

	v.mu.Lock()
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	mountCtx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.roomID = roomID
	ch := channel.New(key, v.opts.Channel, v.handler(gen, roomID))
	v.current = ch
	v.mu.Unlock()

	v.opts.Registry.Replace(v.id, ch)

	// Leave or a newer Enter may have run while the old channel was closing.
	if !v.isCurrent(gen) {
		v.opts.Registry.Release(v.id, ch)
		return ErrSuperseded
	}
	v.log.Reset()
	v.roster.Replace(nil)

	var g errgroup.Group
	g.Go(func() error {
		v.loadHistory(ctx, mountCtx, gen, roomID)
		return nil
	})
	g.Go(func() error {
		if err := ch.Open(ctx); err != nil {
			if !v.isCurrent(gen) {
				return ErrSuperseded
			}
			return err
		}
		return nil
	})
	return g.Wait()
}

func (v *View) loadHistory(ctx, mountCtx context.Context, gen uint64, roomID string) {
	if v.opts.History == nil {
		return
	}

	histCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(mountCtx, cancel)
	defer stop()

	messages, err := v.opts.History.Load(histCtx, roomID)

	v.mu.Lock()
	current := v.gen == gen
	if current {
		v.log.Seed(messages)
	}
	v.mu.Unlock()

	if !current {
		log.Debug().Str("room", roomID).Msg("[chat] discarding stale history")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("[chat] history load failed")
	}
	v.emit(Event{Type: EventHistory, RoomID: roomID, Count: len(messages), Err: err})
}

func (v *View) handler(gen uint64, roomID string) channel.Handler {
	return channel.Handler{
		OnMessage: func(m chat.Message) {
			if !v.isCurrent(gen) {
				return
			}
			idx := v.log.Append(m)
			v.emit(Event{Type: EventMessage, RoomID: roomID, Message: m, Index: idx})
		},
		OnRoster: func(users []string) {
			if !v.isCurrent(gen) {
				return
			}
			v.roster.Replace(users)
			v.emit(Event{Type: EventRoster, RoomID: roomID, Users: v.roster.List()})
		},
		OnProtocolError: func(err error) {
			if !v.isCurrent(gen) {
				return
			}
			v.emit(Event{Type: EventDropped, RoomID: roomID, Err: err})
		},
		OnClosed: func(err error) {
			if !v.isCurrent(gen) {
				return
			}
			v.emit(Event{Type: EventClosed, RoomID: roomID, Err: err})
		},
	}
}

func (v *View) isCurrent(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen == gen
}

func (v *View) emit(e Event) {
	if v.opts.OnEvent != nil {
		v.opts.OnEvent(e)
	}
}

// Leave unmounts the view: the channel is closed, any in-flight history
// request is cancelled and the room state is discarded.
func (v *View) Leave() {
	v.mu.Lock()
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.current = nil
	v.roomID = ""
	v.mu.Unlock()

	v.opts.Registry.Remove(v.id)
	v.log.Reset()
	v.roster.Replace(nil)
}

// Send forwards a frame on the current channel.
func (v *View) Send(frame chat.OutboundFrame) error {
	v.mu.Lock()
	ch := v.current
	v.mu.Unlock()
	if ch == nil {
		return channel.ErrNotOpen
	}
	return ch.Send(frame)
}

// SendText sends typed text. It is not appended locally: the server echo is
// the only source of one's own messages.
func (v *View) SendText(text string) (chat.OutboundFrame, error) {
	if strings.TrimSpace(text) == "" {
		return chat.OutboundFrame{}, api.Required("message")
	}

	frame := chat.OutboundFrame{
		Sender:  v.opts.Username,
		Content: text,
		Type:    content.ForText(text),
	}
	if err := v.Send(frame); err != nil {
		return chat.OutboundFrame{}, err
	}
	return frame, nil
}

// SendFile uploads a file and announces its URL. Nothing is uploaded when
// the channel is not open, since the URL could not be delivered.
func (v *View) SendFile(ctx context.Context, name string, body io.Reader) (chat.OutboundFrame, error) {
	if v.opts.Relay == nil {
		return chat.OutboundFrame{}, ErrNoRelay
	}
	if v.ChannelState() != channel.StateOpen {
		return chat.OutboundFrame{}, channel.ErrNotOpen
	}
	return v.opts.Relay.Send(ctx, v, v.opts.Username, name, body)
}
