package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/canvas-service/internal/postgres"
	"github.com/cwrk-planet/canvas-service/internal/registry"
	"github.com/cwrk-planet/canvas-service/internal/service"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomSvc  *service.RoomService
	chatSvc  *service.ChatService
	registry *registry.Registry
}

func NewHandler(room *service.RoomService, chat *service.ChatService, reg *registry.Registry) *Handler {
	return &Handler{
		roomSvc:  room,
		chatSvc:  chat,
		registry: reg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /wakeup — liveness probe
func (h *Handler) Wakeup(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /room — тело опционально: {"password": "..."}
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	roomID, err := h.roomSvc.CreateRoom(r.Context(), req.Password)
	if err != nil {
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	// пароль в registry хранится дословно — проверка на входе сверяет его же
	h.registry.CreateRoom(roomID, req.Password)

	writeJSON(w, http.StatusCreated, CreateRoomResponse{RoomID: roomID})
}

// DELETE /rooms/{id} — удаляет комнату и рвёт живые соединения
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	if err := h.roomSvc.DeleteRoom(r.Context(), roomID); err != nil {
		slog.Error("handler.DeleteRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	for _, u := range h.registry.DeleteRoom(roomID) {
		_ = u.Conn.Close()
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /rooms/{id}/chat?after=&limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.chatSvc.History(r.Context(), roomID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, ChatMessageItem{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.UserID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
