package game

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed levels.toml
var defaultLevels []byte

// Level 单个关卡：地图 + 障碍配置，加载后只读
type Level struct {
	Name      string           `json:"name"`
	Tiles     TileMap          `json:"tiles"`
	Obstacles []ObstacleConfig `json:"obstacles"`
}

// LevelSet 按关卡顺序排列，第 1 关下标为 0
type LevelSet []Level

// Stage 1-based；越界返回 false
func (s LevelSet) Stage(n int) (Level, bool) {
	if n < 1 || n > len(s) {
		return Level{}, false
	}
	return s[n-1], true
}

type levelFile struct {
	Stage []struct {
		Name     string   `toml:"name"`
		Rows     []string `toml:"rows"`
		Obstacle []struct {
			ID        string      `toml:"id"`
			Speed     float64     `toml:"speed"`
			Width     float64     `toml:"width"`
			Height    float64     `toml:"height"`
			Waypoints [][]float64 `toml:"waypoints"`
		} `toml:"obstacle"`
	} `toml:"stage"`
}

// LoadLevels 解析 TOML 关卡文件
func LoadLevels(r io.Reader) (LevelSet, error) {
	var f levelFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&f); err != nil {
		return nil, fmt.Errorf("decode levels: %w", err)
	}
	if len(f.Stage) == 0 {
		return nil, errors.New("level file defines no stages")
	}

	set := make(LevelSet, 0, len(f.Stage))
	for i, st := range f.Stage {
		tiles, err := ParseTileMap(st.Rows)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i+1, st.Name, err)
		}
		// 每关恰好一个起点和一个终点，否则无法开始或无法通关
		if n := tiles.Count(TileStart); n != 1 {
			return nil, fmt.Errorf("stage %d (%s): %d start tiles, want 1", i+1, st.Name, n)
		}
		if n := tiles.Count(TileGoal); n != 1 {
			return nil, fmt.Errorf("stage %d (%s): %d goal tiles, want 1", i+1, st.Name, n)
		}
		lv := Level{Name: st.Name, Tiles: tiles}
		for _, o := range st.Obstacle {
			if o.Speed < 0 || o.Width <= 0 || o.Height <= 0 {
				return nil, fmt.Errorf("stage %d: obstacle %q has invalid speed or size", i+1, o.ID)
			}
			cfg := ObstacleConfig{
				ID:    o.ID,
				Speed: o.Speed,
				Size:  Size{Width: o.Width, Height: o.Height},
			}
			for _, wp := range o.Waypoints {
				if len(wp) != 2 {
					return nil, fmt.Errorf("stage %d: obstacle %q waypoint needs [x, y]", i+1, o.ID)
				}
				cfg.Waypoints = append(cfg.Waypoints, Position{X: wp[0], Y: wp[1]})
			}
			lv.Obstacles = append(lv.Obstacles, cfg)
		}
		set = append(set, lv)
	}
	return set, nil
}

// LoadLevelsFile path 为空时使用内置关卡
func LoadLevelsFile(path string) (LevelSet, error) {
	if path == "" {
		return DefaultLevels()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLevels(f)
}

// DefaultLevels 内置的三关
func DefaultLevels() (LevelSet, error) {
	return LoadLevels(bytes.NewReader(defaultLevels))
}
