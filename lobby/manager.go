package lobby

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand"
	"sort"
	"sync"
	"time"

	"wasd/game"
)

const (
	// 去掉了 0/O、1/I 等易混字符
	codeChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength  = 6
	codeRetries = 10
)

// Manager 房间注册表。所有读写都在 mu 保护下进行，返回值为拷贝。
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	byPlayer map[string]string // playerID -> room code

	rng      *mrand.Rand
	genCode  func() (string, error)
	attempts int
}

type Option func(*Manager)

// WithRand 用于分配按键的随机源
func WithRand(r *mrand.Rand) Option {
	return func(m *Manager) { m.rng = r }
}

// WithCodeGenerator 替换邀请码生成器
func WithCodeGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.genCode = func() (string, error) { return gen(), nil }
	}
}

// WithCodeReader 邀请码的随机字节来源，默认 crypto/rand
func WithCodeReader(r io.Reader) Option {
	return func(m *Manager) {
		m.genCode = func() (string, error) { return generateCode(r, CodeLength) }
	}
}

// WithCodeAttempts 邀请码冲突时的最大重试次数
func WithCodeAttempts(n int) Option {
	return func(m *Manager) { m.attempts = n }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rooms:    make(map[string]*Room),
		byPlayer: make(map[string]string),
		rng:      mrand.New(mrand.NewSource(time.Now().UnixNano())),
		genCode:  func() (string, error) { return generateCode(rand.Reader, CodeLength) },
		attempts: codeRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func generateCode(r io.Reader, n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}

// uniqueCodeLocked 有限次重试，用尽后报错而不是复用已有的码
func (m *Manager) uniqueCodeLocked() (string, error) {
	for i := 0; i < m.attempts; i++ {
		code, err := m.genCode()
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, exists := m.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// CreateRoom 创建房间，hostID 成为房主
func (m *Manager) CreateRoom(hostID, nickname string) (Room, error) {
	nick, err := ValidateNickname(nickname)
	if err != nil {
		return Room{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPlayer[hostID]; ok {
		return Room{}, ErrAlreadyMember
	}
	code, err := m.uniqueCodeLocked()
	if err != nil {
		return Room{}, err
	}
	r := &Room{
		Code:    code,
		Players: []Player{{ID: hostID, Nickname: nick, Keys: []game.Key{}, IsHost: true}},
		HostID:  hostID,
		Phase:   game.PhaseLobby,
		Stage:   1,
	}
	m.rooms[code] = r
	m.byPlayer[hostID] = code
	return r.clone(), nil
}

// JoinRoom 房间不存在、已开局、已满或玩家已在房间中时失败
func (m *Manager) JoinRoom(code, playerID, nickname string) (Room, error) {
	nick, err := ValidateNickname(nickname)
	if err != nil {
		return Room{}, err
	}
	code = NormalizeCode(code)

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if r.Phase != game.PhaseLobby {
		return Room{}, ErrRoomNotJoinable
	}
	if len(r.Players) >= game.MaxPlayers {
		return Room{}, ErrRoomFull
	}
	if _, ok := m.byPlayer[playerID]; ok {
		return Room{}, ErrAlreadyMember
	}
	r.Players = append(r.Players, Player{ID: playerID, Nickname: nick, Keys: []game.Key{}})
	m.byPlayer[playerID] = code
	return r.clone(), nil
}

// LeaveRoom 移除玩家。最后一人离开时删除房间并返回 false；
// 房主离开时由剩余的第一位玩家接任。
func (m *Manager) LeaveRoom(code, playerID string) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return Room{}, false
	}

	remaining := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.ID != playerID {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) < len(r.Players) {
		delete(m.byPlayer, playerID)
	}
	if len(remaining) == 0 {
		delete(m.rooms, code)
		return Room{}, false
	}

	if r.HostID == playerID {
		r.HostID = remaining[0].ID
	}
	for i := range remaining {
		remaining[i].IsHost = remaining[i].ID == r.HostID
	}
	r.Players = remaining
	return r.clone(), true
}

// StartGame 房主开局：检查阶段与人数，分配按键并切到 playing
func (m *Manager) StartGame(code, requesterID string, minPlayers int) (Room, []KeyAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return Room{}, nil, ErrRoomNotFound
	}
	if r.HostID != requesterID {
		return Room{}, nil, ErrNotHost
	}
	if r.Phase != game.PhaseLobby {
		return Room{}, nil, ErrRoomNotJoinable
	}
	if len(r.Players) < minPlayers {
		return Room{}, nil, ErrNotEnoughPlayers
	}

	assignments := AssignKeys(r.PlayerIDs(), m.rng)
	byID := make(map[string][]game.Key, len(assignments))
	for _, a := range assignments {
		byID[a.PlayerID] = a.Keys
	}
	for i := range r.Players {
		r.Players[i].Keys = append([]game.Key{}, byID[r.Players[i].ID]...)
	}
	r.Phase = game.PhasePlaying
	r.Stage = 1
	return r.clone(), assignments, nil
}

// Update 在锁内修改房间
func (m *Manager) Update(code string, fn func(r *Room)) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok {
		return Room{}, false
	}
	fn(r)
	return r.clone(), true
}

// SetPhase 便捷封装
func (m *Manager) SetPhase(code string, phase game.Phase) (Room, bool) {
	return m.Update(code, func(r *Room) { r.Phase = phase })
}

func (m *Manager) Room(code string) (Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[NormalizeCode(code)]
	if !ok {
		return Room{}, false
	}
	return r.clone(), true
}

// RoomByPlayer 玩家所在房间
func (m *Manager) RoomByPlayer(playerID string) (Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code, ok := m.byPlayer[playerID]
	if !ok {
		return Room{}, false
	}
	return m.rooms[code].clone(), true
}

// Rooms 按邀请码排序的全部房间
func (m *Manager) Rooms() []Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
