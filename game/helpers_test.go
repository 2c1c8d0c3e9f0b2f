package game

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// testRules 步长 12，单次按键即可跨入相邻格
func testRules() Rules {
	return Rules{
		Tuning:       Tuning{TileSize: 32, PlayerSize: 16, Step: 12},
		DeathLogSize: DeathLogSize,
	}
}

func mustTiles(t *testing.T, rows ...string) TileMap {
	t.Helper()
	m, err := ParseTileMap(rows)
	if err != nil {
		t.Fatalf("parse tile map: %v", err)
	}
	return m
}

func mustWorld(t *testing.T, levels LevelSet, rules Rules) World {
	t.Helper()
	w, err := NewWorld(levels, 1, 0, rules, epoch)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func tickAt(n int) time.Time {
	return epoch.Add(time.Duration(n) * TickInterval)
}

func press(player string, keys ...Key) []Input {
	out := make([]Input, 0, len(keys))
	for _, k := range keys {
		out = append(out, Input{Key: k, PlayerID: player, Nickname: "nick-" + player})
	}
	return out
}
