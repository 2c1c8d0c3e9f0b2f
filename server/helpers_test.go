package server

import (
	"sync"
	"testing"
	"time"

	"wasd/game"
	"wasd/lobby"
	"wasd/protocol"
)

// testRules 步长 12，一次按键即可进入相邻格
func testRules() game.Rules {
	return game.Rules{
		Tuning:       game.Tuning{TileSize: 32, PlayerSize: 16, Step: 12},
		DeathLogSize: game.DeathLogSize,
	}
}

// corridorLevels n 关，每关起点右侧紧邻终点、无金币
func corridorLevels(t *testing.T, n int) game.LevelSet {
	t.Helper()
	tiles, err := game.ParseTileMap([]string{"####", "#SG#", "####"})
	if err != nil {
		t.Fatalf("parse tiles: %v", err)
	}
	levels := make(game.LevelSet, n)
	for i := range levels {
		levels[i] = game.Level{Name: "corridor", Tiles: tiles}
	}
	return levels
}

func soloRoom(id string) lobby.Room {
	return lobby.Room{
		Code:    "ROOM22",
		HostID:  id,
		Phase:   game.PhasePlaying,
		Players: []lobby.Player{{ID: id, Nickname: "solo", Keys: game.AllKeys, IsHost: true}},
	}
}

type frame struct {
	room    string // 广播目标；单播时为空
	to      string // 单播目标
	event   string
	payload any
}

// fakeTransport 记录所有发出的消息，并维护房间成员
type fakeTransport struct {
	mu      sync.Mutex
	frames  []frame
	members map[string]map[string]bool

	onMessage    func(string, protocol.ClientMessage)
	onDisconnect func(string)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{members: make(map[string]map[string]bool)}
}

func (f *fakeTransport) Send(room, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame{room: room, event: event, payload: payload})
}

func (f *fakeTransport) SendTo(playerID, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame{to: playerID, event: event, payload: payload})
}

func (f *fakeTransport) Join(room, playerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[room] == nil {
		f.members[room] = make(map[string]bool)
	}
	f.members[room][playerID] = true
}

func (f *fakeTransport) Leave(room, playerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[room], playerID)
}

func (f *fakeTransport) OnMessage(fn func(string, protocol.ClientMessage)) { f.onMessage = fn }
func (f *fakeTransport) OnDisconnect(fn func(string))                      { f.onDisconnect = fn }

func (f *fakeTransport) all() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame{}, f.frames...)
}

func (f *fakeTransport) count(event string) int {
	n := 0
	for _, fr := range f.all() {
		if fr.event == event {
			n++
		}
	}
	return n
}

// last 最近一条匹配的消息
func (f *fakeTransport) last(event string) (frame, bool) {
	frames := f.all()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].event == event {
			return frames[i], true
		}
	}
	return frame{}, false
}

func (f *fakeTransport) isMember(room, playerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[room][playerID]
}

// waitFor 轮询直到 cond 成立
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
