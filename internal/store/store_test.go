package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

func TestPutAndGetUser(t *testing.T) {
	st := newTestStore(t)

	if err := st.PutUser("alice", User{Password: "abc123"}); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	u, ok, err := st.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !ok {
		t.Fatal("expected alice to exist")
	}
	if u.Password != "abc123" {
		t.Errorf("password: got %q, want %q", u.Password, "abc123")
	}
}

func TestGetUserMissing(t *testing.T) {
	st := newTestStore(t)
	_, ok, err := st.GetUser("nobody")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if ok {
		t.Error("expected nobody to be absent")
	}
}

func TestPutUserPersistsAcrossLoads(t *testing.T) {
	st := newTestStore(t)
	if err := st.PutUser("bob", User{Password: "x"}); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	if err := st.PutUser("carol", User{Password: "y"}); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	users, err := st.LoadUsers()
	if err != nil {
		t.Fatalf("LoadUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users["bob"].Password != "x" || users["carol"].Password != "y" {
		t.Errorf("unexpected contents: %+v", users)
	}
}

func TestRenameUser(t *testing.T) {
	st := newTestStore(t)
	st.PutUser("old", User{Password: "p"})

	ok, err := st.RenameUser("old", "new")
	if err != nil {
		t.Fatalf("RenameUser: %v", err)
	}
	if !ok {
		t.Fatal("expected rename to succeed")
	}

	if _, stillThere, _ := st.GetUser("old"); stillThere {
		t.Error("old name should no longer exist")
	}
	u, ok, _ := st.GetUser("new")
	if !ok || u.Password != "p" {
		t.Errorf("new name record missing or wrong: got %+v, ok=%v", u, ok)
	}
}

func TestRenameUserRefusesCollision(t *testing.T) {
	st := newTestStore(t)
	st.PutUser("a", User{Password: "1"})
	st.PutUser("b", User{Password: "2"})

	ok, err := st.RenameUser("a", "b")
	if err != nil {
		t.Fatalf("RenameUser: %v", err)
	}
	if ok {
		t.Error("rename onto an existing username should fail")
	}
	u, _, _ := st.GetUser("b")
	if u.Password != "2" {
		t.Error("existing b record should be untouched")
	}
}

func TestDeleteUser(t *testing.T) {
	st := newTestStore(t)
	st.PutUser("gone", User{Password: "x"})
	if err := st.DeleteUser("gone"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok, _ := st.GetUser("gone"); ok {
		t.Error("expected gone to be deleted")
	}
}

func TestPutRoomAndRoomExists(t *testing.T) {
	st := newTestStore(t)
	room := Room{MsgRate: 5, Users: map[string]RoomUser{"owner": {Role: "owner"}}}
	if err := st.PutRoom("lobby", room); err != nil {
		t.Fatalf("PutRoom: %v", err)
	}

	exists, err := st.RoomExists("lobby")
	if err != nil {
		t.Fatalf("RoomExists: %v", err)
	}
	if !exists {
		t.Error("expected lobby to exist")
	}

	rooms, err := st.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	if rooms["lobby"].MsgRate != 5 {
		t.Errorf("msg_rate: got %d, want 5", rooms["lobby"].MsgRate)
	}
}

func TestDeleteRoom(t *testing.T) {
	st := newTestStore(t)
	st.PutRoom("temp", Room{})
	if err := st.DeleteRoom("temp"); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	exists, _ := st.RoomExists("temp")
	if exists {
		t.Error("expected temp room to be gone")
	}
}

func TestListRoomNamesSorted(t *testing.T) {
	st := newTestStore(t)
	st.PutRoom("zeta", Room{})
	st.PutRoom("alpha", Room{})
	st.PutRoom("mid", Room{})

	names, err := st.ListRoomNames()
	if err != nil {
		t.Fatalf("ListRoomNames: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestExportAndImportUserVault(t *testing.T) {
	st := newTestStore(t)
	path, err := st.ExportUserVault("dave", User{Password: "hash", Ignore: []string{"eve"}})
	if err != nil {
		t.Fatalf("ExportUserVault: %v", err)
	}
	if filepath.Base(path) != "dave.json" {
		t.Errorf("path: got %q, want basename dave.json", path)
	}

	name, u, err := st.ImportUserVault(path)
	if err != nil {
		t.Fatalf("ImportUserVault: %v", err)
	}
	if name != "dave" {
		t.Errorf("name: got %q, want dave", name)
	}
	if u.Password != "hash" || len(u.Ignore) != 1 || u.Ignore[0] != "eve" {
		t.Errorf("got %+v", u)
	}
}

func TestExportAndImportRoomVault(t *testing.T) {
	st := newTestStore(t)
	path, err := st.ExportRoomVault("vault-room", Room{MsgRate: 3})
	if err != nil {
		t.Fatalf("ExportRoomVault: %v", err)
	}

	name, r, err := st.ImportRoomVault(path)
	if err != nil {
		t.Fatalf("ImportRoomVault: %v", err)
	}
	if name != "vault-room" {
		t.Errorf("name: got %q, want vault-room", name)
	}
	if r.MsgRate != 3 {
		t.Errorf("msg_rate: got %d, want 3", r.MsgRate)
	}
}

func TestImportUserVaultRejectsMultiKeyFile(t *testing.T) {
	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := saveJSON(path, map[string]User{"a": {}, "b": {}}); err != nil {
		t.Fatalf("saveJSON: %v", err)
	}
	if _, _, err := st.ImportUserVault(path); err == nil {
		t.Error("expected error for multi-key vault file")
	}
}

func TestLoadUsersOnFreshStoreIsEmptyNotError(t *testing.T) {
	st := newTestStore(t)
	users, err := st.LoadUsers()
	if err != nil {
		t.Fatalf("LoadUsers: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected empty map, got %v", users)
	}
}
