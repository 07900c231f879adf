package registry

import (
	"sort"
	"testing"
)

type stubConn struct{ closed bool }

func (c *stubConn) Send([]byte) error { return nil }
func (c *stubConn) Ready() bool       { return !c.closed }
func (c *stubConn) Close() error      { c.closed = true; return nil }

func newUser(id string) *User {
	return &User{ID: id, Conn: &stubConn{}}
}

func userIDs(users []User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	sort.Strings(ids)
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateRoom_Multiple(t *testing.T) {
	r := New()
	if n := len(r.ActiveRoomIDs()); n != 0 {
		t.Fatalf("expected 0 rooms, got %d", n)
	}

	r.CreateRoom("1", "")
	r.CreateRoom("2", "")

	ids := r.ActiveRoomIDs()
	sort.Strings(ids)
	if !equalStrings(ids, []string{"1", "2"}) {
		t.Fatalf("unexpected room ids: %v", ids)
	}
}

func TestCreateRoom_OverwritesExisting(t *testing.T) {
	r := New()
	r.CreateRoom("TEST", "")
	r.AddUser("TEST", newUser("u1"), "")

	// повторный CreateRoom молча заменяет комнату
	r.CreateRoom("TEST", "secret")

	if n := len(r.RoomUsers("TEST")); n != 0 {
		t.Fatalf("expected empty room after recreate, got %d users", n)
	}
	if r.AddUser("TEST", newUser("u2"), "nope") {
		t.Fatal("expected password to be enforced after recreate")
	}
}

func TestAddUser(t *testing.T) {
	r := New()
	r.CreateRoom("TEST", "")
	r.CreateRoom("OTHER", "")

	if !r.AddUser("TEST", newUser("u1"), "") {
		t.Fatal("AddUser u1 failed")
	}
	if !r.AddUser("TEST", newUser("u2"), "") {
		t.Fatal("AddUser u2 failed")
	}
	if !r.AddUser("OTHER", newUser("u3"), "") {
		t.Fatal("AddUser u3 failed")
	}

	if got := userIDs(r.RoomUsers("TEST")); !equalStrings(got, []string{"u1", "u2"}) {
		t.Fatalf("TEST users = %v", got)
	}
	if got := userIDs(r.RoomUsers("OTHER")); !equalStrings(got, []string{"u3"}) {
		t.Fatalf("OTHER users = %v", got)
	}
}

func TestAddUser_Password(t *testing.T) {
	const password = "12345678"

	r := New()
	r.CreateRoom("TEST", password)

	if r.AddUser("TEST", newUser("u1"), "123") {
		t.Fatal("wrong password accepted")
	}
	if r.AddUser("TEST", newUser("u1"), "") {
		t.Fatal("missing password accepted")
	}
	if n := len(r.RoomUsers("TEST")); n != 0 {
		t.Fatalf("rejected join mutated the room: %d users", n)
	}

	if !r.AddUser("TEST", newUser("u1"), password) {
		t.Fatal("correct password rejected")
	}
	if n := len(r.RoomUsers("TEST")); n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestAddUser_NoPasswordAcceptsAny(t *testing.T) {
	r := New()
	r.CreateRoom("TEST", "")

	if !r.AddUser("TEST", newUser("u1"), "whatever") {
		t.Fatal("open room rejected a password")
	}
	if !r.AddUser("TEST", newUser("u2"), "") {
		t.Fatal("open room rejected an absent password")
	}
}

func TestAddUser_CreatesRoomOnFirstUse(t *testing.T) {
	r := New()
	if n := len(r.ActiveRoomIDs()); n != 0 {
		t.Fatalf("expected 0 rooms, got %d", n)
	}

	if !r.AddUser("FIRST", newUser("u1"), "") {
		t.Fatal("AddUser failed")
	}
	ids := r.ActiveRoomIDs()
	if len(ids) != 1 || ids[0] != "FIRST" {
		t.Fatalf("unexpected room ids: %v", ids)
	}
}

func TestRemoveUser(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.AddUser("TEST", newUser("u2"), "")
	r.AddUser("OTHER", newUser("u3"), "")

	r.RemoveUser("TEST", "u1")

	if got := userIDs(r.RoomUsers("TEST")); !equalStrings(got, []string{"u2"}) {
		t.Fatalf("TEST users = %v", got)
	}
	if got := userIDs(r.RoomUsers("OTHER")); !equalStrings(got, []string{"u3"}) {
		t.Fatalf("OTHER users = %v", got)
	}

	// отсутствующая комната/участник — no-op
	if released := r.RemoveUser("TEST", "u1"); released != nil {
		t.Fatalf("expected nil for absent user, got %v", released)
	}
	if released := r.RemoveUser("NOPE", "u1"); released != nil {
		t.Fatalf("expected nil for absent room, got %v", released)
	}
}

func TestToggleItemsLock_Acquire(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.AddUser("TEST", newUser("u2"), "")

	changed := r.ToggleItemsLock("TEST", "u1", []string{"a", "b"}, true)
	if !equalStrings(changed, []string{"a", "b"}) {
		t.Fatalf("acquire changed = %v", changed)
	}

	// повторный захват не проходит даже для самого владельца
	if changed := r.ToggleItemsLock("TEST", "u1", []string{"a"}, true); changed != nil {
		t.Fatalf("re-acquire by owner changed = %v", changed)
	}
	if changed := r.ToggleItemsLock("TEST", "u2", []string{"a"}, true); changed != nil {
		t.Fatalf("acquire of held lock changed = %v", changed)
	}
}

func TestToggleItemsLock_Release(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.AddUser("TEST", newUser("u2"), "")
	r.ToggleItemsLock("TEST", "u1", []string{"a"}, true)

	// чужую блокировку снять нельзя
	if changed := r.ToggleItemsLock("TEST", "u2", []string{"a"}, false); changed != nil {
		t.Fatalf("release by non-owner changed = %v", changed)
	}
	// незаблокированный объект — нечего снимать
	if changed := r.ToggleItemsLock("TEST", "u1", []string{"b"}, false); changed != nil {
		t.Fatalf("release of unlocked changed = %v", changed)
	}

	if changed := r.ToggleItemsLock("TEST", "u1", []string{"a"}, false); !equalStrings(changed, []string{"a"}) {
		t.Fatalf("release by owner changed = %v", changed)
	}
	// после снятия объект снова свободен
	if changed := r.ToggleItemsLock("TEST", "u2", []string{"a"}, true); !equalStrings(changed, []string{"a"}) {
		t.Fatalf("acquire after release changed = %v", changed)
	}
}

func TestToggleItemsLock_BatchIsPerItem(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.AddUser("TEST", newUser("u2"), "")
	r.ToggleItemsLock("TEST", "u2", []string{"b"}, true)

	// "b" занят u2, но это не мешает захвату "a" и "c"
	changed := r.ToggleItemsLock("TEST", "u1", []string{"a", "b", "c"}, true)
	if !equalStrings(changed, []string{"a", "c"}) {
		t.Fatalf("changed = %v", changed)
	}
}

func TestCanEditItem(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.AddUser("TEST", newUser("u2"), "")
	r.ToggleItemsLock("TEST", "u1", []string{"a"}, true)

	tests := []struct {
		name   string
		userID string
		itemID string
		want   bool
	}{
		{"unlocked item", "u2", "b", true},
		{"own lock", "u1", "a", true},
		{"foreign lock", "u2", "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.CanEditItem("TEST", tt.userID, tt.itemID); got != tt.want {
				t.Fatalf("CanEditItem(%s, %s) = %v, want %v", tt.userID, tt.itemID, got, tt.want)
			}
		})
	}

	if !r.CanEditItem("NOPE", "u1", "a") {
		t.Fatal("absent room must have no locks")
	}
}

func TestRemoveUser_ReleasesLocks(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.AddUser("TEST", newUser("u2"), "")
	r.ToggleItemsLock("TEST", "u1", []string{"a", "b"}, true)
	r.ToggleItemsLock("TEST", "u2", []string{"c"}, true)

	released := r.RemoveUser("TEST", "u1")
	sort.Strings(released)
	if !equalStrings(released, []string{"a", "b"}) {
		t.Fatalf("released = %v", released)
	}

	// чужие блокировки не тронуты, свои действительно сняты
	if r.CanEditItem("TEST", "u1", "c") {
		t.Fatal("u2 lock on c was lost")
	}
	if changed := r.ToggleItemsLock("TEST", "u2", []string{"a", "b"}, true); !equalStrings(changed, []string{"a", "b"}) {
		t.Fatalf("released items not acquirable: %v", changed)
	}
}

func TestUpdateUser(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")

	if !r.UpdateUser("TEST", "u1", "Alice") {
		t.Fatal("UpdateUser failed for present user")
	}
	users := r.RoomUsers("TEST")
	if len(users) != 1 || users[0].Name != "Alice" {
		t.Fatalf("presence update not applied: %+v", users)
	}

	if r.UpdateUser("TEST", "ghost", "x") {
		t.Fatal("UpdateUser succeeded for absent user")
	}
	if r.UpdateUser("NOPE", "u1", "x") {
		t.Fatal("UpdateUser succeeded for absent room")
	}
}

func TestRoomUsers_SnapshotDetachedFromUpdates(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")
	r.UpdateUser("TEST", "u1", "Alice")

	snap := r.RoomUsers("TEST")
	r.UpdateUser("TEST", "u1", "Bob")

	// снапшот — копия на момент вызова, позднейшие правки в него не протекают
	if snap[0].Name != "Alice" {
		t.Fatalf("snapshot mutated after UpdateUser: %+v", snap[0])
	}
	if got := r.RoomUsers("TEST"); got[0].Name != "Bob" {
		t.Fatalf("fresh snapshot missed the update: %+v", got[0])
	}
}

func TestRoomUsers_ConcurrentWithUpdateUser(t *testing.T) {
	r := New()
	r.AddUser("TEST", newUser("u1"), "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			r.UpdateUser("TEST", "u1", "name-"+string(rune('a'+i%26)))
		}
	}()

	// чтение имени из снапшота не должно гоняться с presence-обновлениями
	for i := 0; i < 1000; i++ {
		for _, u := range r.RoomUsers("TEST") {
			_ = u.Name
		}
	}
	<-done
}

func TestDeleteRoom(t *testing.T) {
	r := New()
	u1 := newUser("u1")
	u2 := newUser("u2")
	r.AddUser("TEST", u1, "")
	r.AddUser("TEST", u2, "")

	evicted := r.DeleteRoom("TEST")
	if got := userIDs(evicted); !equalStrings(got, []string{"u1", "u2"}) {
		t.Fatalf("evicted = %v", got)
	}
	if n := len(r.ActiveRoomIDs()); n != 0 {
		t.Fatalf("room survived deletion, %d rooms left", n)
	}

	if evicted := r.DeleteRoom("TEST"); evicted != nil {
		t.Fatalf("expected nil for absent room, got %v", evicted)
	}
}
