package lobby

import (
	"math/rand"

	"wasd/game"
)

// KeyAssignment 开局时分配给玩家的按键
type KeyAssignment struct {
	PlayerID string     `json:"playerId"`
	Keys     []game.Key `json:"keys"`
}

// 两人局只允许对角拆分：每人各持一个水平键和一个垂直键
var diagonalSplits = [2][2][]game.Key{
	{{game.KeyW, game.KeyD}, {game.KeyA, game.KeyS}},
	{{game.KeyA, game.KeyS}, {game.KeyW, game.KeyD}},
}

// AssignKeys 把 w/a/s/d 分给 1-4 名玩家，并集总是四个键。人数越界返回 nil。
func AssignKeys(playerIDs []string, rng *rand.Rand) []KeyAssignment {
	switch len(playerIDs) {
	case 4:
		keys := shuffled(game.AllKeys, rng)
		out := make([]KeyAssignment, 4)
		for i, id := range playerIDs {
			out[i] = KeyAssignment{PlayerID: id, Keys: []game.Key{keys[i]}}
		}
		return out

	case 3:
		keys := shuffled(game.AllKeys, rng)
		players := shuffled(playerIDs, rng)
		return []KeyAssignment{
			{PlayerID: players[0], Keys: []game.Key{keys[0]}},
			{PlayerID: players[1], Keys: []game.Key{keys[1]}},
			{PlayerID: players[2], Keys: []game.Key{keys[2], keys[3]}},
		}

	case 2:
		split := diagonalSplits[rng.Intn(len(diagonalSplits))]
		return []KeyAssignment{
			{PlayerID: playerIDs[0], Keys: append([]game.Key{}, split[0]...)},
			{PlayerID: playerIDs[1], Keys: append([]game.Key{}, split[1]...)},
		}

	case 1:
		return []KeyAssignment{{PlayerID: playerIDs[0], Keys: append([]game.Key{}, game.AllKeys...)}}
	}
	return nil
}

func shuffled[T any](in []T, rng *rand.Rand) []T {
	out := append([]T{}, in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
