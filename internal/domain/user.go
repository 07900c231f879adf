package domain

// User — публичное представление участника комнаты: то, что уходит клиентам.
// Хэндл соединения живёт только внутри registry и никогда не сериализуется.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
