package game

import "math"

// tileSpan 玩家包围盒覆盖的格子范围（闭区间），最多 2x2
type tileSpan struct {
	startRow, endRow int
	startCol, endCol int
}

func overlapping(p Position, t Tuning) tileSpan {
	return tileSpan{
		startCol: int(math.Floor(p.X / t.TileSize)),
		endCol:   int(math.Floor((p.X + t.PlayerSize - 1) / t.TileSize)),
		startRow: int(math.Floor(p.Y / t.TileSize)),
		endRow:   int(math.Floor((p.Y + t.PlayerSize - 1) / t.TileSize)),
	}
}

func (s tileSpan) any(m TileMap, fn func(row, col int, tile Tile) bool) bool {
	for row := s.startRow; row <= s.endRow; row++ {
		for col := s.startCol; col <= s.endCol; col++ {
			if fn(row, col, m.At(row, col)) {
				return true
			}
		}
	}
	return false
}

// CheckWallCollision 任一覆盖格为 WALL 即碰撞
func CheckWallCollision(p Position, m TileMap, t Tuning) bool {
	return overlapping(p, t).any(m, func(_, _ int, tile Tile) bool {
		return tile == TileWall
	})
}

// CheckCoinCollection 返回新覆盖且尚未收集的金币键；纯函数，由调用方提交
func CheckCoinCollection(p Position, m TileMap, collected map[string]struct{}, t Tuning) []string {
	var keys []string
	overlapping(p, t).any(m, func(row, col int, tile Tile) bool {
		if tile != TileCoin {
			return false
		}
		key := CoinKey(row, col)
		if _, ok := collected[key]; !ok {
			keys = append(keys, key)
		}
		return false
	})
	return keys
}

// CheckGoalReached 任一覆盖格为 GOAL
func CheckGoalReached(p Position, m TileMap, t Tuning) bool {
	return overlapping(p, t).any(m, func(_, _ int, tile Tile) bool {
		return tile == TileGoal
	})
}
