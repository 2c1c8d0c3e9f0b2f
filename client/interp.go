package client

import (
	"time"

	"wasd/game"
)

// interpolation 上一个与当前权威位置，以及收到当前位置的时间
type interpolation struct {
	prev      game.Position
	current   game.Position
	updatedAt time.Time
}

func newInterpolation(p game.Position, now time.Time) interpolation {
	return interpolation{prev: p, current: p, updatedAt: now}
}

func (s interpolation) update(p game.Position, now time.Time) interpolation {
	return interpolation{prev: s.current, current: p, updatedAt: now}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// at 一个 Tick 内在两次权威位置间插值；超过一个 Tick 且仍在移动时，
// 沿当前方向外推，最多 maxExtra 个 Tick。
func (s interpolation) at(now time.Time, dir game.Direction, moving bool, step float64, tick time.Duration, maxExtra float64) game.Position {
	t := float64(now.Sub(s.updatedAt)) / float64(tick)
	if t <= 1 {
		k := clamp(t, 0, 1)
		return game.Position{
			X: lerp(s.prev.X, s.current.X, k),
			Y: lerp(s.prev.Y, s.current.Y, k),
		}
	}
	if !moving {
		return s.current
	}
	extra := clamp(t-1, 0, maxExtra)
	d := dir.Delta(step)
	return game.Position{
		X: s.current.X + d.X*extra,
		Y: s.current.Y + d.Y*extra,
	}
}

// shouldReset 换关或死亡时直接跳到新位置，不做插值
func shouldReset(prev *game.GameState, cur game.GameState) bool {
	if prev == nil {
		return true
	}
	return prev.Stage != cur.Stage || prev.Deaths != cur.Deaths
}
