package game

import (
	"fmt"
	"strconv"
)

// Tile 格子编码
type Tile int

const (
	TileEmpty Tile = iota
	TileWall
	TileCoin
	TileStart
	TileGoal
)

// 关卡文件中的字符表示
var tileGlyphs = map[rune]Tile{
	'.': TileEmpty,
	' ': TileEmpty,
	'#': TileWall,
	'o': TileCoin,
	'S': TileStart,
	'G': TileGoal,
}

// TileMap 行优先二维格子，每关只读
type TileMap [][]Tile

// ParseTileMap 从字符行解析地图，要求所有行等宽
func ParseTileMap(rows []string) (TileMap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tile map has no rows")
	}
	m := make(TileMap, len(rows))
	width := -1
	for r, line := range rows {
		row := make([]Tile, 0, len(line))
		for _, ch := range line {
			t, ok := tileGlyphs[ch]
			if !ok {
				return nil, fmt.Errorf("row %d: unknown tile %q", r, ch)
			}
			row = append(row, t)
		}
		if width >= 0 && len(row) != width {
			return nil, fmt.Errorf("row %d: width %d, want %d", r, len(row), width)
		}
		width = len(row)
		m[r] = row
	}
	return m, nil
}

// At 越界返回 TileEmpty
func (m TileMap) At(row, col int) Tile {
	if row < 0 || row >= len(m) || col < 0 || col >= len(m[row]) {
		return TileEmpty
	}
	return m[row][col]
}

// Rows / Cols
func (m TileMap) Rows() int { return len(m) }

func (m TileMap) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// CountCoins 统计金币格数量
func (m TileMap) CountCoins() int { return m.Count(TileCoin) }

func (m TileMap) Count(tile Tile) int {
	n := 0
	for _, row := range m {
		for _, t := range row {
			if t == tile {
				n++
			}
		}
	}
	return n
}

// StartPosition 玩家包围盒居中于 START 格；无 START 时回落到 (tile+8, tile+8)
func (m TileMap) StartPosition(t Tuning) Position {
	inset := (t.TileSize - t.PlayerSize) / 2
	for r, row := range m {
		for c, tile := range row {
			if tile == TileStart {
				return Position{
					X: float64(c)*t.TileSize + inset,
					Y: float64(r)*t.TileSize + inset,
				}
			}
		}
	}
	return Position{X: t.TileSize + 8, Y: t.TileSize + 8}
}

// CoinKey "row,col"
func CoinKey(row, col int) string {
	return strconv.Itoa(row) + "," + strconv.Itoa(col)
}
