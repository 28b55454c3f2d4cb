// Package fakebackend is an in-process stand-in for the chat backend. It
// speaks the same HTTP and websocket surface and records every request so
// tests can assert on network traffic.
package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/model/room"
)

type user struct {
	Name     string
	Password string
}

// Backend holds the fake server state.
type Backend struct {
	mu        sync.Mutex
	users     map[string]user
	rooms     map[string]room.Room
	order     []string
	messages  map[string][]chat.HistoryRecord
	rawHist   map[string]string
	peers     map[string]map[*peer]struct{}
	requests  map[string]int
	uploads   map[string][]byte
	uploadErr int

	upgrader  websocket.Upgrader
	server    *httptest.Server
	publicURL string
}

// New starts a fake backend on a random local port. Call Close when done.
func New() *Backend {
	b := newBackend()
	b.server = httptest.NewServer(b.routes())
	b.mu.Lock()
	b.publicURL = b.server.URL
	b.mu.Unlock()
	return b
}

// NewUnstarted builds the backend without a listener; serve Handler
// yourself. publicURL is the base reported for uploaded files.
func NewUnstarted(publicURL string) *Backend {
	b := newBackend()
	b.publicURL = strings.TrimRight(publicURL, "/")
	return b
}

func newBackend() *Backend {
	return &Backend{
		users:    make(map[string]user),
		rooms:    make(map[string]room.Room),
		messages: make(map[string][]chat.HistoryRecord),
		rawHist:  make(map[string]string),
		peers:    make(map[string]map[*peer]struct{}),
		requests: make(map[string]int),
		uploads:  make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler is the backend's full HTTP surface.
func (b *Backend) Handler() http.Handler {
	return b.routes()
}

// URL is the http base of the fake backend.
func (b *Backend) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.publicURL
}

// WebSocketURL is the ws base of the fake backend.
func (b *Backend) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(b.URL(), "http")
}

// Close disconnects every peer and stops the server.
func (b *Backend) Close() {
	b.mu.Lock()
	for _, set := range b.peers {
		for p := range set {
			_ = p.conn.Close()
		}
	}
	b.mu.Unlock()
	if b.server != nil {
		b.server.CloseClientConnections()
		b.server.Close()
	}
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(b.count)

	r.Post("/login", b.handleLogin)
	r.Post("/register", b.handleRegister)

	r.Get("/rooms/{username}", b.handleListRooms)
	r.Post("/rooms", b.handleCreateRoom)
	r.Delete("/rooms/{roomID}", b.handleDeleteRoom)
	r.Delete("/room/{roomID}", b.handleDeleteRoom)

	r.Get("/messages/{roomID}", b.handleHistory)
	r.Post("/upload", b.handleUpload)
	r.Get("/files/{name}", b.handleFile)

	r.Route("/admin", func(admin chi.Router) {
		admin.Get("/rooms", b.handleAdminRooms)
		admin.Get("/messages/{roomID}", b.handleHistory)
		admin.Delete("/room/{roomID}", b.handleDeleteRoom)
	})

	r.Get("/ws/{roomID}/{username}", b.handleWebSocket)
	return r
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests[r.Method+" "+r.URL.Path]++
		b.requests["*"]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns how many requests hit "METHOD /path". Use "*" for the
// total across all routes.
func (b *Backend) Requests(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[key]
}

// AddUser registers an account directly.
func (b *Backend) AddUser(username, name, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = user{Name: name, Password: password}
}

// AddRoom creates a room owned by username and returns its id.
func (b *Backend) AddRoom(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createRoomLocked(username)
}

func (b *Backend) createRoomLocked(username string) string {
	id := uuid.NewString()[:8]
	b.rooms[id] = room.Room{
		RoomID:    id,
		Owner:     username,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		Active:    true,
	}
	b.order = append(b.order, id)
	return id
}

// HasRoom reports whether the room still exists.
func (b *Backend) HasRoom(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.rooms[id]
	return ok
}

// AddHistory appends persisted records to a room.
func (b *Backend) AddHistory(roomID string, records ...chat.HistoryRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[roomID] = append(b.messages[roomID], records...)
}

// SetRawHistory makes GET /messages/{roomID} answer with body verbatim.
func (b *Backend) SetRawHistory(roomID, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rawHist[roomID] = body
}

// History returns what the backend has persisted for the room.
func (b *Backend) History(roomID string) []chat.HistoryRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]chat.HistoryRecord(nil), b.messages[roomID]...)
}

// FailUploads makes POST /upload answer with status until reset with 0.
func (b *Backend) FailUploads(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadErr = status
}

// Uploaded returns the bytes stored under name by POST /upload.
func (b *Backend) Uploaded(name string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.uploads[name]
	return data, ok
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
