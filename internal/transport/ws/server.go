package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/canvas-service/internal/domain"
	"github.com/cwrk-planet/canvas-service/internal/identity"
	"github.com/cwrk-planet/canvas-service/internal/registry"

	"github.com/gorilla/websocket"
)

// RoomStore — проверки комнаты при входе (Persistence Gateway).
type RoomStore interface {
	RoomExists(ctx context.Context, roomID string) (bool, error)
	IsPasswordCorrect(ctx context.Context, roomID, password string) (bool, error)
}

// ItemStore — durable-хранилище объектов комнаты (Persistence Gateway).
// AddItem — атомарный create-or-replace по id.
type ItemStore interface {
	AllItems(ctx context.Context, roomID string) ([]domain.Item, error)
	AddItem(ctx context.Context, roomID string, item domain.Item) (domain.Item, error)
	UpdateItem(ctx context.Context, roomID string, patch domain.Item) error
	RemoveItem(ctx context.Context, roomID, id string) error
}

// ChatStore — опциональная история чата; nil отключает персистенцию.
type ChatStore interface {
	Save(ctx context.Context, roomID, userID string, body json.RawMessage) (*domain.ChatMessage, error)
}

// Server — протокольный движок: admission, handshake, диспетчеризация
// сообщений и teardown. Авторизация мутаций всегда перепроверяется по
// текущему состоянию registry, никогда не кэшируется.
type Server struct {
	upgrader websocket.Upgrader
	registry *registry.Registry
	rooms    RoomStore
	items    ItemStore
	chat     ChatStore

	pingEvery time.Duration
}

func NewServer(reg *registry.Registry, rooms RoomStore, items ItemStore, chat ChatStore, pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		registry: reg,
		rooms:    rooms,
		items:    items,
		chat:     chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: pingEvery,
	}
}

// WS endpoint: GET /ws?roomId=...&password=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := strings.TrimSpace(q.Get("roomId"))
	password := q.Get("password")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	c := newConn(conn)

	// admission: одно error-сообщение и закрытие транспорта
	if roomID == "" {
		s.reject(c, "room not specified")
		return
	}
	exists, err := s.rooms.RoomExists(r.Context(), roomID)
	if err != nil {
		slog.Warn("ws room check failed", "room", roomID, "err", err)
		s.reject(c, "unable to verify room")
		return
	}
	if !exists {
		s.reject(c, fmt.Sprintf("room %s does not exist", roomID))
		return
	}
	ok, err := s.rooms.IsPasswordCorrect(r.Context(), roomID, password)
	if err != nil {
		slog.Warn("ws password check failed", "room", roomID, "err", err)
		s.reject(c, "unable to verify password")
		return
	}
	if !ok {
		s.reject(c, "wrong password")
		return
	}

	user := &registry.User{ID: identity.New(), Conn: c}
	if !s.registry.AddUser(roomID, user, password) {
		s.reject(c, "wrong password")
		return
	}

	s.handshake(r.Context(), roomID, user)

	go s.pingLoop(r.Context(), c)
	s.readLoop(r.Context(), roomID, user, c)

	s.teardown(roomID, user)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "room", roomID, "user", user.ID, "err", err)
	}
}

// handshake: остальным — уведомление о входе, новичку — состав комнаты,
// снапшот объектов и затем его собственный id. Порядок важен: id-сообщение
// сигнализирует клиенту «инициализация завершена», поэтому уходит последним.
func (s *Server) handshake(ctx context.Context, roomID string, user *registry.User) {
	s.broadcastExcept(roomID, user.ID, Message{
		Type:    TypeUser,
		UserID:  identity.Admin,
		Content: mustContent(UserPayload{Action: ActionJoin, Users: []domain.User{publicUser(*user)}}),
	})

	others := make([]domain.User, 0)
	for _, u := range s.registry.RoomUsers(roomID) {
		if u.ID != user.ID {
			others = append(others, publicUser(u))
		}
	}
	s.sendTo(user, Message{
		Type:    TypeUser,
		UserID:  identity.Admin,
		Content: mustContent(UserPayload{Action: ActionJoin, Users: others}),
	})

	items, err := s.items.AllItems(ctx, roomID)
	if err != nil {
		slog.Error("ws snapshot failed", "room", roomID, "err", err)
		s.broadcastError(roomID, err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	s.sendTo(user, Message{
		Type:    TypeAdd,
		UserID:  identity.Admin,
		Content: mustContent(items),
	})

	s.sendTo(user, Message{
		Type:    TypeID,
		UserID:  identity.Admin,
		Content: mustContent(user.ID),
	})
}

func (s *Server) readLoop(ctx context.Context, roomID string, user *registry.User, c *Conn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // битый конверт — no-op без подтверждения
		}
		s.dispatch(ctx, roomID, user, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, roomID string, user *registry.User, msg Message) {
	switch msg.Type {
	case TypeAdd:
		var items []domain.Item
		if json.Unmarshal(msg.Content, &items) != nil || len(items) == 0 {
			return
		}
		saved := make([]domain.Item, 0, len(items))
		for _, it := range items {
			out, err := s.items.AddItem(ctx, roomID, it)
			if err != nil {
				s.broadcastError(roomID, err)
				return
			}
			saved = append(saved, out)
		}
		s.broadcast(roomID, Message{Type: TypeAdd, UserID: user.ID, Content: mustContent(saved)})

	case TypeUpdate:
		var patches []domain.Item
		if json.Unmarshal(msg.Content, &patches) != nil {
			return
		}
		allowed := make([]domain.Item, 0, len(patches))
		for _, p := range patches {
			if s.registry.CanEditItem(roomID, user.ID, p.ID) {
				allowed = append(allowed, p)
			}
		}
		// запрещённые правки отбрасываются молча: отправитель просто не
		// увидит эха
		if len(allowed) == 0 {
			return
		}
		for _, p := range allowed {
			if err := s.items.UpdateItem(ctx, roomID, p); err != nil {
				s.broadcastError(roomID, err)
				return
			}
		}
		s.broadcast(roomID, Message{Type: TypeUpdate, UserID: user.ID, Content: mustContent(allowed)})

	case TypeDelete:
		var ids []string
		if json.Unmarshal(msg.Content, &ids) != nil {
			return
		}
		allowed := make([]string, 0, len(ids))
		for _, id := range ids {
			if s.registry.CanEditItem(roomID, user.ID, id) {
				allowed = append(allowed, id)
			}
		}
		if len(allowed) == 0 {
			return
		}
		for _, id := range allowed {
			if err := s.items.RemoveItem(ctx, roomID, id); err != nil {
				s.broadcastError(roomID, err)
				return
			}
		}
		s.broadcast(roomID, Message{Type: TypeDelete, UserID: user.ID, Content: mustContent(allowed)})

	case TypeLock:
		var p LockPayload
		if json.Unmarshal(msg.Content, &p) != nil {
			return
		}
		changed := s.registry.ToggleItemsLock(roomID, user.ID, p.ItemIDs, p.LockState)
		if len(changed) == 0 {
			return
		}
		s.broadcast(roomID, Message{
			Type:    TypeLock,
			UserID:  user.ID,
			Content: mustContent(LockPayload{ItemIDs: changed, LockState: p.LockState}),
		})

	case TypeUser:
		var p UserPayload
		if json.Unmarshal(msg.Content, &p) != nil {
			return
		}
		// клиент может обновлять только собственный presence
		if p.Action != ActionUpdate || len(p.Users) == 0 {
			return
		}
		name := p.Users[0].Name
		if !s.registry.UpdateUser(roomID, user.ID, name) {
			return
		}
		s.broadcast(roomID, Message{
			Type:    TypeUser,
			UserID:  user.ID,
			Content: mustContent(UserPayload{Action: ActionUpdate, Users: []domain.User{{ID: user.ID, Name: name}}}),
		})

	case TypeChat:
		if len(msg.Content) == 0 {
			return
		}
		if s.chat != nil {
			if _, err := s.chat.Save(ctx, roomID, user.ID, msg.Content); err != nil {
				slog.Warn("ws chat save failed", "room", roomID, "user", user.ID, "err", err)
			}
		}
		s.broadcast(roomID, Message{Type: TypeChat, UserID: user.ID, Content: msg.Content})

	default:
		// неизвестный тип — не ошибка
	}
}

// teardown: снять блокировки ушедшего и уведомить остальных. Сначала lock
// release, потом leave.
func (s *Server) teardown(roomID string, user *registry.User) {
	released := s.registry.RemoveUser(roomID, user.ID)
	if len(released) > 0 {
		s.broadcast(roomID, Message{
			Type:    TypeLock,
			UserID:  user.ID,
			Content: mustContent(LockPayload{ItemIDs: released, LockState: false}),
		})
	}
	s.broadcast(roomID, Message{
		Type:    TypeUser,
		UserID:  identity.Admin,
		Content: mustContent(UserPayload{Action: ActionLeave, Users: []domain.User{{ID: user.ID}}}),
	})
}

func (s *Server) pingLoop(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// broadcast сериализует сообщение один раз и раздаёт всем открытым
// соединениям комнаты. Без подтверждений и повторов; порядок гарантирован
// только в рамках одного соединения.
func (s *Server) broadcast(roomID string, msg Message) {
	s.broadcastExcept(roomID, "", msg)
}

func (s *Server) broadcastExcept(roomID, exceptUserID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, u := range s.registry.RoomUsers(roomID) {
		if u.ID == exceptUserID || !u.Conn.Ready() {
			continue
		}
		_ = u.Conn.Send(data) // best-effort
	}
}

func (s *Server) broadcastError(roomID string, err error) {
	s.broadcast(roomID, Message{
		Type:    TypeError,
		UserID:  identity.Admin,
		Content: mustContent(err.Error()),
	})
}

func (s *Server) sendTo(user *registry.User, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := user.Conn.Send(data); err != nil {
		slog.Debug("ws send failed", "user", user.ID, "err", err)
	}
}

// reject — терминальный отказ при входе: одно error-сообщение и закрытие.
func (s *Server) reject(c *Conn, reason string) {
	msg := Message{Type: TypeError, UserID: identity.Admin, Content: mustContent(reason)}
	if data, err := json.Marshal(msg); err == nil {
		_ = c.Send(data)
	}
	_ = c.Close()
}

func publicUser(u registry.User) domain.User {
	return domain.User{ID: u.ID, Name: u.Name}
}
