package room

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chating-app/chating/client/internal/model/chat"
	"github.com/chating-app/chating/client/internal/model/room"
	"github.com/chating-app/chating/client/internal/service/api"
	"github.com/chating-app/chating/client/internal/service/history"
)

// Admin is the moderation surface over every room.
type Admin struct {
	client  Client
	history *history.Loader
}

// NewAdmin 创建管理服务
func NewAdmin(client Client) *Admin {
	return &Admin{client: client, history: history.NewAdminLoader(client)}
}

// Rooms lists all rooms regardless of owner.
func (a *Admin) Rooms(ctx context.Context) ([]room.Room, error) {
	var rooms []room.Room
	if err := a.client.DoJSON(ctx, http.MethodGet, nil, &rooms, "admin", "rooms"); err != nil {
		return nil, fmt.Errorf("list all rooms: %w", err)
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return rooms, nil
}

// Messages reads a room transcript through the admin endpoint.
func (a *Admin) Messages(ctx context.Context, roomID string) ([]chat.Message, error) {
	return a.history.Load(ctx, roomID)
}

// DeleteRoom removes a room and its transcript.
func (a *Admin) DeleteRoom(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return api.Required("room id")
	}
	if err := a.client.DoJSON(ctx, http.MethodDelete, nil, nil, "admin", "room", roomID); err != nil {
		return fmt.Errorf("admin delete room %s: %w", roomID, err)
	}
	return nil
}
