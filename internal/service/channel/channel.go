package channel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/service/api"
)

var (
	ErrMissingKey = errors.New("room id and username are both required")
	ErrNotOpen    = errors.New("channel is not open")
	ErrUsed       = errors.New("channel already opened once")
)

// State of a channel. A channel is single-use: Closed is final.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler receives channel events. All callbacks run on the channel's single
// read goroutine, in frame order. Nil callbacks are skipped.
type Handler struct {
	OnMessage       func(chat.Message)
	OnRoster        func(users []string)
	OnProtocolError func(err error)
	// OnClosed fires once when the read loop ends. err is nil when the
	// close was requested locally.
	OnClosed func(err error)
}

// Options 连接选项
type Options struct {
	BaseURL      *url.URL          // ws:// or wss:// base
	Dialer       *websocket.Dialer // defaults to websocket.DefaultDialer
	PingInterval time.Duration     // 0 disables keepalive pings
	WriteTimeout time.Duration     // 0 leaves writes unbounded
	Now          func() time.Time
}

// Channel owns exactly one websocket connection for one (room, user) key.
type Channel struct {
	key     chat.SessionKey
	opts    Options
	handler Handler

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	writeMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// New prepares a channel; nothing is dialled until Open.
func New(key chat.SessionKey, opts Options, handler Handler) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Channel{
		key:     key,
		opts:    opts,
		handler: handler,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Key returns the (room, user) pair this channel serves.
func (c *Channel) Key() chat.SessionKey {
	return c.key
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the channel has fully shut down.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// URL is the endpoint the channel dials.
func (c *Channel) URL() string {
	if c.opts.BaseURL == nil {
		return ""
	}
	return api.JoinURL(c.opts.BaseURL, "ws", c.key.RoomID, c.key.Username)
}

// Open dials the backend. It only proceeds when both halves of the key are
// known. A failed handshake leaves the channel Closed; there is no retry.
func (c *Channel) Open(ctx context.Context) error {
	if !c.key.Complete() {
		return ErrMissingKey
	}
	if c.opts.BaseURL == nil {
		return api.Required("websocket base url")
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrUsed
	}
	c.state = StateConnecting
	c.mu.Unlock()

	target := c.URL()
	conn, _, err := c.opts.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.finish()
		log.Warn().Err(err).Str("room", c.key.RoomID).Msg("[channel] dial failed")
		return fmt.Errorf("websocket dial %s: %w", c.key, err)
	}

	c.mu.Lock()
	if c.state == StateClosed {
		// Close raced with the handshake.
		c.mu.Unlock()
		_ = conn.Close()
		c.finish()
		return ErrNotOpen
	}
	c.state = StateOpen
	c.conn = conn
	c.mu.Unlock()

	log.Debug().Str("room", c.key.RoomID).Str("user", c.key.Username).Msg("[channel] open")

	go c.readLoop(conn)
	if c.opts.PingInterval > 0 {
		go c.pingLoop(conn)
	}
	return nil
}

// Send writes one outbound frame. No acknowledgement is awaited and a failed
// write is not retried.
func (c *Channel) Send(frame chat.OutboundFrame) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != StateOpen || conn == nil {
		return ErrNotOpen
	}
	if frame.Sender == "" {
		frame.Sender = c.key.Username
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("websocket write %s: %w", c.key, err)
	}
	return nil
}

// Close releases the connection and waits for the read loop to exit. It is
// safe to call from any state and more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	prev := c.state
	c.state = StateClosed
	conn := c.conn
	c.mu.Unlock()

	c.stopOnce.Do(func() { close(c.stop) })

	switch {
	case conn != nil:
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	case prev == StateIdle:
		c.finish()
	}

	<-c.done
	return nil
}

func (c *Channel) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Channel) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	var closeErr error
	defer func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		_ = conn.Close()

		if c.handler.OnClosed != nil {
			c.handler.OnClosed(closeErr)
		}
		c.finish()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if c.stopped() {
				return
			}
			closeErr = err
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("room", c.key.RoomID).Msg("[channel] connection lost")
			} else {
				log.Info().Str("room", c.key.RoomID).Msg("[channel] closed by remote")
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	event, err := DecodeFrame(data, c.opts.Now())
	if err != nil {
		log.Warn().Err(err).Str("room", c.key.RoomID).Msg("[channel] dropping frame")
		if c.handler.OnProtocolError != nil {
			c.handler.OnProtocolError(err)
		}
		return
	}

	if event.IsRoster {
		if c.handler.OnRoster != nil {
			c.handler.OnRoster(event.Roster)
		}
		return
	}
	if c.handler.OnMessage != nil {
		c.handler.OnMessage(event.Message)
	}
}

// pingLoop 定期发送ping消息
func (c *Channel) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.PingInterval)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Str("room", c.key.RoomID).Msg("[channel] ping failed")
				return
			}
		}
	}
}
