package lobby

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"wasd/game"
)

const (
	NicknameMin = 1
	NicknameMax = 10
)

var (
	ErrInvalidNickname  = errors.New("nickname must be 1-10 characters")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomNotJoinable  = errors.New("room is not accepting players")
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyMember    = errors.New("player is already in a room")
	ErrNotMember        = errors.New("player is not in this room")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrCodeExhausted    = errors.New("failed to generate unique room code")
)

// Player 房间成员
type Player struct {
	ID       string     `json:"id"`
	Nickname string     `json:"nickname"`
	Keys     []game.Key `json:"keys"`
	IsHost   bool       `json:"isHost"`
}

// Room 房间元数据；对外总是返回深拷贝
type Room struct {
	Code    string     `json:"code"`
	Players []Player   `json:"players"`
	HostID  string     `json:"hostId"`
	Phase   game.Phase `json:"phase"`
	Stage   int        `json:"stage"`
}

// Player 按 id 查找成员
func (r Room) Player(id string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerIDs 加入顺序
func (r Room) PlayerIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// Owns 玩家是否持有该键
func (p Player) Owns(k game.Key) bool {
	for _, own := range p.Keys {
		if own == k {
			return true
		}
	}
	return false
}

func (r Room) clone() Room {
	c := r
	c.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		p.Keys = append([]game.Key{}, p.Keys...)
		c.Players[i] = p
	}
	return c
}

// ValidateNickname 去掉首尾空白后要求 1-10 个字符
func ValidateNickname(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	n := utf8.RuneCountInString(trimmed)
	if n < NicknameMin || n > NicknameMax {
		return "", fmt.Errorf("%w: got %d", ErrInvalidNickname, n)
	}
	return trimmed, nil
}

// NormalizeCode 邀请码不区分大小写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
