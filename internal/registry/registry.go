// Package registry владеет живым состоянием комнат: участники с их
// соединениями, пароль комнаты и таблица блокировок объектов. Всё в памяти,
// ничего не персистится; durable-состояние лежит за Persistence Gateway.
package registry

import "sync"

// Conn — минимальный хэндл транспорта, который registry хранит при участнике.
// Протокольный движок передаёт своё ws-соединение, тесты — заглушку.
type Conn interface {
	Send(data []byte) error
	Ready() bool
	Close() error
}

// User — внутреннее представление участника: публичные поля плюс хэндл
// соединения. Наружу (в broadcast) уходит только пара ID/Name.
type User struct {
	ID   string
	Name string
	Conn Conn
}

type room struct {
	password string            // сравнивается дословно; "" — комната без пароля
	users    map[string]*User  // userID -> участник
	locks    map[string]string // itemID -> userID владельца
}

func newRoom(password string) *room {
	return &room{
		password: password,
		users:    make(map[string]*User),
		locks:    make(map[string]string),
	}
}

// Registry — реестр активных комнат. Все операции тотальны: отсутствующая
// комната или участник — ожидаемое состояние (гонки с disconnect), поэтому
// возвращаем пустой результат, а не ошибку.
//
// Мьютекс общий на реестр: операции короткие и не блокируются внутри,
// contention низкий.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// CreateRoom вставляет пустую комнату. Существующая комната молча
// перезаписывается — для вызывающего операция идемпотентна.
func (r *Registry) CreateRoom(id, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[id] = newRoom(password)
}

// DeleteRoom удаляет комнату и возвращает бывших участников, чтобы вызывающий
// мог закрыть их соединения.
func (r *Registry) DeleteRoom(id string) []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return nil
	}
	delete(r.rooms, id)

	evicted := make([]User, 0, len(rm.users))
	for _, u := range rm.users {
		evicted = append(evicted, *u)
	}
	return evicted
}

func (r *Registry) ActiveRoomIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}

// AddUser впускает участника, если комната без пароля или пароль совпал
// дословно. Отсутствующая комната создаётся на месте (без пароля).
func (r *Registry) AddUser(roomID string, u *User, password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = newRoom("")
		r.rooms[roomID] = rm
	}
	if rm.password != "" && rm.password != password {
		return false
	}
	// храним собственную копию: указатель вызывающего не должен
	// алиасить состояние под мьютексом
	cp := *u
	rm.users[u.ID] = &cp
	return true
}

// RemoveUser убирает участника и возвращает id объектов, которые он держал
// заблокированными (блокировки сняты). Нет комнаты или участника — пустой
// результат.
func (r *Registry) RemoveUser(roomID, userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	if _, ok := rm.users[userID]; !ok {
		return nil
	}
	delete(rm.users, userID)

	var released []string
	for itemID, owner := range rm.locks {
		if owner == userID {
			delete(rm.locks, itemID)
			released = append(released, itemID)
		}
	}
	return released
}

// UpdateUser применяет presence-обновление (сейчас — имя). false, если
// комнаты или участника уже нет.
func (r *Registry) UpdateUser(roomID, userID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	u, ok := rm.users[userID]
	if !ok {
		return false
	}
	u.Name = name
	return true
}

// RoomUsers возвращает снапшот состава комнаты: копии по значению, снятые под
// мьютексом. Снапшот не видит последующих изменений (UpdateUser и т.п.) и
// безопасен для чтения без блокировки.
func (r *Registry) RoomUsers(roomID string) []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	users := make([]User, 0, len(rm.users))
	for _, u := range rm.users {
		users = append(users, *u)
	}
	return users
}

// CanEditItem — единственные ворота авторизации для update/delete: объект
// свободен или заблокирован именно этим пользователем.
func (r *Registry) CanEditItem(roomID, userID, itemID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return true // нет комнаты — нет и блокировок
	}
	owner, locked := rm.locks[itemID]
	return !locked || owner == userID
}

// ToggleItemsLock переключает блокировки по одному id независимо и возвращает
// только те id, чьё состояние реально изменилось (в порядке запроса):
//
//   - захват: только если объект свободен. Повторный захват уже удерживаемой
//     блокировки — в том числе самим владельцем — не проходит;
//   - снятие: только текущим владельцем.
//
// Никакой транзакционности по батчу нет.
func (r *Registry) ToggleItemsLock(roomID, userID string, itemIDs []string, lock bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	var changed []string
	for _, itemID := range itemIDs {
		owner, locked := rm.locks[itemID]
		if lock {
			if locked {
				continue
			}
			rm.locks[itemID] = userID
			changed = append(changed, itemID)
		} else {
			if !locked || owner != userID {
				continue
			}
			delete(rm.locks, itemID)
			changed = append(changed, itemID)
		}
	}
	return changed
}
