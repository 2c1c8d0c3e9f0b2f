package server

import (
	"wasd/game"
	"wasd/lobby"
)

// Player 对局中的玩家：开局时从房间快照复制，局内不再变化
type Player struct {
	ID       string
	Nickname string
	Keys     []game.Key
}

// owners 按玩家 ID 索引，用于输入鉴权
type owners map[string]Player

func newOwners(r lobby.Room) owners {
	o := make(owners, len(r.Players))
	for _, p := range r.Players {
		o[p.ID] = Player{ID: p.ID, Nickname: p.Nickname, Keys: append([]game.Key{}, p.Keys...)}
	}
	return o
}

// authorize 玩家在局内且持有该键时返回对应输入
func (o owners) authorize(playerID string, key game.Key) (game.Input, bool) {
	p, ok := o[playerID]
	if !ok || !key.Valid() {
		return game.Input{}, false
	}
	for _, k := range p.Keys {
		if k == key {
			return game.Input{Key: key, PlayerID: p.ID, Nickname: p.Nickname}, true
		}
	}
	return game.Input{}, false
}
