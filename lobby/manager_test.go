package lobby

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"wasd/game"
)

func newTestManager(opts ...Option) *Manager {
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return NewManager(opts...)
}

func TestCreateRoom(t *testing.T) {
	m := newTestManager()
	r, err := m.CreateRoom("h", "  host  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(r.Code) != CodeLength {
		t.Fatalf("code %q has wrong length", r.Code)
	}
	for _, c := range r.Code {
		if !containsRune(codeChars, c) {
			t.Fatalf("code %q uses %q outside alphabet", r.Code, c)
		}
	}
	if r.HostID != "h" || !r.Players[0].IsHost || r.Players[0].Nickname != "host" || r.Phase != game.PhaseLobby {
		t.Fatalf("unexpected room: %+v", r)
	}
	got, ok := m.RoomByPlayer("h")
	if !ok || got.Code != r.Code {
		t.Fatalf("RoomByPlayer = %+v, %v", got, ok)
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func TestInvalidNicknameNeverMutates(t *testing.T) {
	m := newTestManager()
	for _, nick := range []string{"", "   ", "elevenchars"} {
		if _, err := m.CreateRoom("h", nick); !errors.Is(err, ErrInvalidNickname) {
			t.Fatalf("CreateRoom(%q) err = %v", nick, err)
		}
	}
	if m.Len() != 0 {
		t.Fatalf("invalid nickname created a room")
	}

	r, _ := m.CreateRoom("h", "host")
	if _, err := m.JoinRoom(r.Code, "p", "waytoolongname"); !errors.Is(err, ErrInvalidNickname) {
		t.Fatalf("JoinRoom err = %v", err)
	}
	got, _ := m.Room(r.Code)
	if len(got.Players) != 1 {
		t.Fatalf("invalid nickname altered room: %+v", got)
	}
	// 10 个多字节字符合法
	if _, err := m.JoinRoom(r.Code, "p", "가나다라마바사아자차"); err != nil {
		t.Fatalf("ten-rune nickname rejected: %v", err)
	}
}

func TestJoinRoomFailures(t *testing.T) {
	m := newTestManager()
	r, _ := m.CreateRoom("h", "host")

	if _, err := m.JoinRoom("ZZZZZZ", "x", "x"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("missing room err = %v", err)
	}
	if _, err := m.JoinRoom(r.Code, "h", "again"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("duplicate member err = %v", err)
	}
	for _, id := range []string{"p2", "p3", "p4"} {
		if _, err := m.JoinRoom(r.Code, id, id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if _, err := m.JoinRoom(r.Code, "p5", "p5"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("full room err = %v", err)
	}

	m.SetPhase(r.Code, game.PhasePlaying)
	m.LeaveRoom(r.Code, "p4")
	if _, err := m.JoinRoom(r.Code, "p6", "p6"); !errors.Is(err, ErrRoomNotJoinable) {
		t.Fatalf("started room err = %v", err)
	}
}

func TestJoinRoomCodeCaseInsensitive(t *testing.T) {
	m := newTestManager(WithCodeGenerator(func() string { return "ABCDEF" }))
	m.CreateRoom("h", "host")
	if _, err := m.JoinRoom(" abcdef ", "p", "p"); err != nil {
		t.Fatalf("join with lowercase code: %v", err)
	}
}

func TestLeaveRoomHostReassignment(t *testing.T) {
	m := newTestManager()
	r, _ := m.CreateRoom("h", "host")
	m.JoinRoom(r.Code, "p2", "two")
	m.JoinRoom(r.Code, "p3", "three")

	updated, ok := m.LeaveRoom(r.Code, "h")
	if !ok {
		t.Fatalf("room should survive host leaving")
	}
	if updated.HostID != "p2" {
		t.Fatalf("host = %q, want p2", updated.HostID)
	}
	for _, p := range updated.Players {
		if p.IsHost != (p.ID == "p2") {
			t.Fatalf("isHost flags out of sync: %+v", updated.Players)
		}
	}
	if _, ok := m.RoomByPlayer("h"); ok {
		t.Fatalf("departed host still indexed")
	}

	updated, ok = m.LeaveRoom(r.Code, "p3")
	if !ok || updated.HostID != "p2" || len(updated.Players) != 1 {
		t.Fatalf("non-host leave changed host: %+v", updated)
	}

	if _, ok := m.LeaveRoom(r.Code, "p2"); ok {
		t.Fatalf("last player leaving should delete the room")
	}
	if _, ok := m.Room(r.Code); ok || m.Len() != 0 {
		t.Fatalf("room still registered after last player left")
	}
}

func TestCodeGenerationExhausted(t *testing.T) {
	calls := 0
	m := newTestManager(WithCodeGenerator(func() string {
		calls++
		return "SAME22"
	}))
	if _, err := m.CreateRoom("a", "a"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	calls = 0
	_, err := m.CreateRoom("b", "b")
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("err = %v, want ErrCodeExhausted", err)
	}
	if calls != codeRetries {
		t.Fatalf("generator called %d times, want %d", calls, codeRetries)
	}
	if _, ok := m.RoomByPlayer("b"); ok || m.Len() != 1 {
		t.Fatalf("failed create left partial state")
	}
}

func TestCodeGenerationReaderFailure(t *testing.T) {
	boom := errors.New("entropy unavailable")
	m := newTestManager(WithCodeReader(iotest.ErrReader(boom)))
	_, err := m.CreateRoom("a", "a")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped reader error", err)
	}
	if _, ok := m.RoomByPlayer("a"); ok {
		t.Fatalf("failed create registered the player")
	}
	if len(m.Rooms()) != 0 {
		t.Fatalf("failed create left a room behind")
	}
}

func TestCodeReaderAlphabet(t *testing.T) {
	m := newTestManager(WithCodeReader(strings.NewReader(strings.Repeat("\x05", 64))))
	r, err := m.CreateRoom("a", "a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(r.Code) != CodeLength || strings.Trim(r.Code, codeChars) != "" {
		t.Fatalf("code %q outside alphabet", r.Code)
	}
}

func TestCodeGenerationRetriesPastCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	i := 0
	m := newTestManager(WithCodeGenerator(func() string {
		c := codes[i]
		i++
		return c
	}))
	a, _ := m.CreateRoom("a", "a")
	b, err := m.CreateRoom("b", "b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Code == b.Code || b.Code != "BBBBBB" {
		t.Fatalf("codes %q and %q", a.Code, b.Code)
	}
}

func TestStartGame(t *testing.T) {
	m := newTestManager()
	r, _ := m.CreateRoom("h", "host")

	if _, _, err := m.StartGame(r.Code, "h", game.MinPlayers); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("solo start in multiplayer mode err = %v", err)
	}
	m.JoinRoom(r.Code, "p2", "two")
	if _, _, err := m.StartGame(r.Code, "p2", game.MinPlayers); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host start err = %v", err)
	}

	started, as, err := m.StartGame(r.Code, "h", game.MinPlayers)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Phase != game.PhasePlaying || len(as) != 2 {
		t.Fatalf("unexpected start: %+v %+v", started, as)
	}
	for _, p := range started.Players {
		if len(p.Keys) != 2 {
			t.Fatalf("player %s keys not committed: %v", p.ID, p.Keys)
		}
	}
	if _, _, err := m.StartGame(r.Code, "h", game.MinPlayers); !errors.Is(err, ErrRoomNotJoinable) {
		t.Fatalf("double start err = %v", err)
	}
}

func TestReturnedRoomsAreCopies(t *testing.T) {
	m := newTestManager()
	r, _ := m.CreateRoom("h", "host")
	r.Players[0].Nickname = "mutated"
	got, _ := m.Room(r.Code)
	if got.Players[0].Nickname != "host" {
		t.Fatalf("caller mutation leaked into registry")
	}
}
