package fakebackend

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chating-app/chating/client/internal/model/room"
	"github.com/chating-app/chating/client/pkg/utils"
)

// handleLogin 登录
func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &payload); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	u, ok := b.users[payload.Username]
	b.mu.Unlock()
	if !ok || u.Password != payload.Password {
		utils.RespondDetail(w, http.StatusUnauthorized, "아이디 또는 비밀번호가 올바르지 않습니다")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"username": payload.Username,
		"name":     u.Name,
	})
}

// handleRegister 注册
func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &payload); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[payload.Username]; exists {
		utils.RespondDetail(w, http.StatusBadRequest, "이미 존재하는 아이디입니다")
		return
	}
	b.users[payload.Username] = user{Name: payload.Name, Password: payload.Password}
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (b *Backend) roomsOf(username string) []room.Room {
	out := make([]room.Room, 0)
	for _, id := range b.order {
		if rm, ok := b.rooms[id]; ok && (username == "" || rm.Owner == username) {
			out = append(out, rm)
		}
	}
	return out
}

func (b *Backend) handleListRooms(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	b.mu.Lock()
	rooms := b.roomsOf(username)
	b.mu.Unlock()
	utils.RespondJSON(w, http.StatusOK, rooms)
}

func (b *Backend) handleAdminRooms(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	rooms := b.roomsOf("")
	b.mu.Unlock()
	utils.RespondJSON(w, http.StatusOK, rooms)
}

func (b *Backend) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := decodeBody(r, &payload); err != nil || payload.Username == "" {
		utils.RespondDetail(w, http.StatusBadRequest, "username is required")
		return
	}

	b.mu.Lock()
	id := b.createRoomLocked(payload.Username)
	b.mu.Unlock()
	utils.RespondJSON(w, http.StatusOK, map[string]string{"room_id": id})
}

func (b *Backend) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")

	b.mu.Lock()
	_, ok := b.rooms[id]
	if ok {
		delete(b.rooms, id)
		delete(b.messages, id)
	}
	b.mu.Unlock()

	if !ok {
		utils.RespondDetail(w, http.StatusNotFound, "room not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")

	b.mu.Lock()
	raw, hasRaw := b.rawHist[id]
	records := toAny(b.messages[id])
	b.mu.Unlock()

	if hasRaw {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, raw)
		return
	}
	utils.RespondJSON(w, http.StatusOK, records)
}

// handleUpload 处理文件上传，返回可访问的URL
func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	failWith := b.uploadErr
	b.mu.Unlock()
	if failWith != 0 {
		utils.RespondDetail(w, failWith, "upload rejected")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondDetail(w, http.StatusInternalServerError, "read failed")
		return
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(header.Filename))
	b.mu.Lock()
	b.uploads[name] = data
	b.mu.Unlock()

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"url": strings.TrimRight(b.URL(), "/") + "/files/" + name,
	})
}

func (b *Backend) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, ok := b.Uploaded(name)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "file not found")
		return
	}
	_, _ = w.Write(data)
}
