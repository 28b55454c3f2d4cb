package room

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chating-app/chating/client/internal/model/room"
	"github.com/chating-app/chating/client/internal/service/api"
)

// DefaultMaxRooms is how many rooms one user may own.
const DefaultMaxRooms = 3

// ErrRoomLimit is returned by Create once the owner is at the room cap.
var ErrRoomLimit = errors.New("room limit reached")

// Client is the slice of api.Client the directory needs.
type Client interface {
	DoJSON(ctx context.Context, method string, in, out any, segments ...string) error
}

// Directory lists, creates and deletes the rooms of one user.
type Directory struct {
	client   Client
	username string
	maxRooms int

	mu     sync.Mutex
	rooms  []room.Room
	loaded bool
}

// NewDirectory 创建房间目录; maxRooms <= 0 uses DefaultMaxRooms.
func NewDirectory(client Client, username string, maxRooms int) *Directory {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	return &Directory{
		client:   client,
		username: strings.TrimSpace(username),
		maxRooms: maxRooms,
	}
}

// MaxRooms is the cap enforced by Create.
func (d *Directory) MaxRooms() int { return d.maxRooms }

// List fetches the user's rooms and refreshes the cache.
func (d *Directory) List(ctx context.Context) ([]room.Room, error) {
	if d.username == "" {
		return nil, api.Required("username")
	}

	var rooms []room.Room
	if err := d.client.DoJSON(ctx, http.MethodGet, nil, &rooms, "rooms", d.username); err != nil {
		return nil, fmt.Errorf("list rooms of %s: %w", d.username, err)
	}
	if rooms == nil {
		rooms = []room.Room{}
	}

	d.mu.Lock()
	d.rooms = rooms
	d.loaded = true
	d.mu.Unlock()

	return cloneRooms(rooms), nil
}

// Cached returns the last listed rooms without a request.
func (d *Directory) Cached() []room.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneRooms(d.rooms)
}

// Create asks the backend for a new room. The cap is checked against the
// cached list first, so a user at the limit never reaches the network.
func (d *Directory) Create(ctx context.Context) (string, error) {
	if d.username == "" {
		return "", api.Required("username")
	}

	d.mu.Lock()
	loaded := d.loaded
	d.mu.Unlock()
	if !loaded {
		if _, err := d.List(ctx); err != nil {
			return "", err
		}
	}

	d.mu.Lock()
	count := len(d.rooms)
	d.mu.Unlock()
	if count >= d.maxRooms {
		return "", fmt.Errorf("%w: at most %d rooms per user", ErrRoomLimit, d.maxRooms)
	}

	var resp struct {
		RoomID string `json:"room_id"`
	}
	payload := map[string]string{"username": d.username}
	if err := d.client.DoJSON(ctx, http.MethodPost, payload, &resp, "rooms"); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	if resp.RoomID == "" {
		return "", fmt.Errorf("create room: %w", api.ErrEmptyBody)
	}

	d.mu.Lock()
	d.rooms = append(d.rooms, room.Room{RoomID: resp.RoomID, Owner: d.username, Active: true})
	d.mu.Unlock()

	log.Info().Str("room", resp.RoomID).Str("user", d.username).Msg("[room] created")
	return resp.RoomID, nil
}

// Delete removes a room; the cache only changes when the backend agrees.
func (d *Directory) Delete(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return api.Required("room id")
	}

	if err := d.client.DoJSON(ctx, http.MethodDelete, nil, nil, "rooms", roomID); err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}

	d.mu.Lock()
	kept := d.rooms[:0]
	for _, r := range d.rooms {
		if r.RoomID != roomID {
			kept = append(kept, r)
		}
	}
	d.rooms = kept
	d.mu.Unlock()

	log.Info().Str("room", roomID).Msg("[room] deleted")
	return nil
}

// NewAdHocID returns a short identifier for entering a room that was not
// created through the directory.
func NewAdHocID() string {
	return uuid.NewString()[:8]
}

func cloneRooms(rooms []room.Room) []room.Room {
	out := make([]room.Room, len(rooms))
	copy(out, rooms)
	return out
}
