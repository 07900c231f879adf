package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Conn оборачивает websocket-соединение: сериализует записи и помнит,
// закрыт ли транспорт. Реализует registry.Conn.
type Conn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newConn(c *websocket.Conn) *Conn {
	return &Conn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *Conn) Send(data []byte) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Ready — транспорт ещё открыт на момент проверки. Доставка best-effort:
// между проверкой и записью соединение может умереть, Send просто вернёт
// ошибку.
func (c *Conn) Ready() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *Conn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
