package fakebackend

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chating-app/chating/client/internal/model/chat"
)

type peer struct {
	roomID   string
	username string
	conn     *websocket.Conn
	writeMu  sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func toAny[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

// handleWebSocket 处理聊天室WebSocket连接：广播消息并维护在线用户列表
func (b *Backend) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	username := chi.URLParam(r, "username")

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[fakebackend] upgrade failed")
		return
	}

	p := &peer{roomID: roomID, username: username, conn: conn}
	b.mu.Lock()
	set, ok := b.peers[roomID]
	if !ok {
		set = make(map[*peer]struct{})
		b.peers[roomID] = set
	}
	set[p] = struct{}{}
	b.mu.Unlock()

	b.broadcastRoster(roomID)

	defer func() {
		b.mu.Lock()
		delete(b.peers[roomID], p)
		if len(b.peers[roomID]) == 0 {
			delete(b.peers, roomID)
		}
		b.mu.Unlock()
		_ = conn.Close()
		b.broadcastRoster(roomID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame chat.OutboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		record := chat.HistoryRecord{
			Username:  username,
			Sender:    frame.Sender,
			Content:   frame.Content,
			Type:      string(frame.Type),
			CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		}
		b.AddHistory(roomID, record)

		echo, _ := json.Marshal(map[string]any{
			"sender":     frame.Sender,
			"content":    frame.Content,
			"type":       frame.Type,
			"created_at": record.CreatedAt,
		})
		b.Push(roomID, echo)
	}
}

func (b *Backend) broadcastRoster(roomID string) {
	users := b.Participants(roomID)
	data, _ := json.Marshal(map[string]any{"type": chat.EventUserList, "users": users})
	b.Push(roomID, data)
}

// Push writes raw bytes to every peer of the room, well-formed or not.
func (b *Backend) Push(roomID string, data []byte) {
	b.mu.Lock()
	targets := make([]*peer, 0, len(b.peers[roomID]))
	for p := range b.peers[roomID] {
		targets = append(targets, p)
	}
	b.mu.Unlock()

	for _, p := range targets {
		if err := p.write(data); err != nil {
			log.Debug().Err(err).Str("room", roomID).Msg("[fakebackend] write failed")
		}
	}
}

// Participants lists the usernames connected to a room, sorted.
func (b *Backend) Participants(roomID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	users := make([]string, 0, len(b.peers[roomID]))
	for p := range b.peers[roomID] {
		users = append(users, p.username)
	}
	sort.Strings(users)
	return users
}

// Connections counts live sockets across all rooms.
func (b *Backend) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, set := range b.peers {
		n += len(set)
	}
	return n
}

// RoomConnections counts live sockets in one room.
func (b *Backend) RoomConnections(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers[roomID])
}

// Kick closes every socket of the room from the server side.
func (b *Backend) Kick(roomID string) {
	b.mu.Lock()
	targets := make([]*peer, 0, len(b.peers[roomID]))
	for p := range b.peers[roomID] {
		targets = append(targets, p)
	}
	b.mu.Unlock()

	for _, p := range targets {
		p.writeMu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
		p.writeMu.Unlock()
		_ = p.conn.Close()
	}
}
