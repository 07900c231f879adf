package ws

import (
	"encoding/json"

	"github.com/cwrk-planet/canvas-service/internal/domain"
)

// Типы сообщений протокола. Набор закрытый: всё исходящее — один из этих
// типов, неизвестный входящий тип молча игнорируется.
const (
	TypeAdd    = "add"    // список объектов (обе стороны)
	TypeUpdate = "update" // частичные обновления по id (обе стороны)
	TypeDelete = "delete" // список id (обе стороны)
	TypeLock   = "lock"   // запрос/подтверждение блокировок
	TypeUser   = "user"   // вход/выход/presence участников
	TypeID     = "id"     // выданная идентичность (только сервер->клиент)
	TypeChat   = "chat"   // произвольный payload (обе стороны)
	TypeError  = "error"  // всегда от admin (только сервер->клиент)
)

// Действия user-сообщений.
const (
	ActionJoin   = "join"
	ActionUpdate = "update"
	ActionLeave  = "leave"
)

// Message — конверт протокола. Content хранится сырым: форма определяется
// типом, и разбор не должен ронять соединение.
type Message struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
	UserID  string          `json:"userId"`
}

type LockPayload struct {
	ItemIDs   []string `json:"itemIds"`
	LockState bool     `json:"lockState"`
}

type UserPayload struct {
	Action string        `json:"action"`
	Users  []domain.User `json:"users,omitempty"`
}

// mustContent сериализует payload исходящего сообщения. Все наши payload-ы
// маршалятся без ошибок; на всякий случай деградируем в null.
func mustContent(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
