// Package client 提供客户端侧的预测/插值引擎与 WebSocket 连接。
package client

import (
	"math"
	"sync"
	"time"

	"wasd/game"
)

// DefaultGuardWindow 本地预测优先于服务端快照的时长
const DefaultGuardWindow = 150 * time.Millisecond

type Options struct {
	TickInterval time.Duration
	// GuardWindow 超过该时长仍未被服务端确认的预测会被快照覆盖
	GuardWindow time.Duration
	Tuning      game.Tuning
	// MaxExtrapolationTicks 无新快照时最多外推的 Tick 数
	MaxExtrapolationTicks float64
	// MaxDivergence 预测与快照相差超过该距离时立即以快照为准
	MaxDivergence float64
	// Levels 可选；提供时本地预测会先做墙体检测
	Levels game.LevelSet
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = game.TickInterval
	}
	if o.GuardWindow <= 0 {
		o.GuardWindow = DefaultGuardWindow
	}
	if o.Tuning == (game.Tuning{}) {
		o.Tuning = game.DefaultTuning()
	}
	if o.MaxExtrapolationTicks <= 0 {
		o.MaxExtrapolationTicks = 2
	}
	if o.MaxDivergence <= 0 {
		o.MaxDivergence = o.Tuning.TileSize
	}
	return o
}

// Engine 客户端渲染用的位置估计。渲染循环与网络协程可并发调用。
type Engine struct {
	mu   sync.Mutex
	opts Options

	last   *game.GameState
	interp interpolation
	tiles  game.TileMap

	predicting  bool
	predicted   game.Position
	predictedAt time.Time
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// ApplyLocal 立即应用本地按键（预测）。无状态、非 playing 阶段、
// 非法键或会撞墙时不预测，返回 false，交由服务端裁决。
func (e *Engine) ApplyLocal(key game.Key, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	dir := key.Direction()
	if e.last == nil || e.last.Phase != game.PhasePlaying || dir == "" {
		return false
	}
	base := e.last.Position
	if e.predicting && now.Sub(e.predictedAt) <= e.opts.GuardWindow {
		base = e.predicted
	}
	next := game.Move(base, dir, e.opts.Tuning.Step)
	if e.tiles != nil && game.CheckWallCollision(next, e.tiles, e.opts.Tuning) {
		return false
	}
	e.predicting = true
	e.predicted = next
	e.predictedAt = now
	return true
}

// OnSnapshot 接收一帧权威状态并与本地预测对账
func (e *Engine) OnSnapshot(st game.GameState, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if shouldReset(e.last, st) {
		e.interp = newInterpolation(st.Position, now)
		e.predicting = false
		if lv, ok := e.opts.Levels.Stage(st.Stage); ok {
			e.tiles = lv.Tiles
		}
	} else {
		e.interp = e.interp.update(st.Position, now)
	}
	cp := st
	e.last = &cp

	if !e.predicting {
		return
	}
	switch {
	case st.Phase != game.PhasePlaying:
		e.predicting = false
	case now.Sub(e.predictedAt) > e.opts.GuardWindow:
		e.predicting = false
	case distance(e.predicted, st.Position) < 1e-6:
		// 服务端已追上预测
		e.predicting = false
	case distance(e.predicted, st.Position) > e.opts.MaxDivergence:
		e.predicting = false
	}
}

// RenderPosition 当前帧应绘制的位置
func (e *Engine) RenderPosition(now time.Time) game.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.last == nil {
		return game.Position{}
	}
	if e.predicting {
		if now.Sub(e.predictedAt) <= e.opts.GuardWindow {
			return e.predicted
		}
		e.predicting = false
	}
	return e.interp.at(now, e.last.Direction, e.last.Moving, e.opts.Tuning.Step, e.opts.TickInterval, e.opts.MaxExtrapolationTicks)
}

// State 最近一帧权威状态
func (e *Engine) State() (game.GameState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return game.GameState{}, false
	}
	return *e.last, true
}

func distance(a, b game.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
