// Package identity выдаёт непредсказуемые идентификаторы сессий.
package identity

import "github.com/google/uuid"

// Admin — зарезервированная системная идентичность для сообщений сервера.
const Admin = "admin"

// New возвращает свежий уникальный id пользователя. Идентификаторы не
// переиспользуются и не должны угадываться, поэтому uuid v4.
func New() string {
	return uuid.NewString()
}
