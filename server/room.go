package server

import (
	"sync"
	"sync/atomic"
	"time"

	"wasd/game"
	"wasd/lobby"
	"wasd/protocol"
)

// LoopConfig 一局游戏的运行参数
type LoopConfig struct {
	TickInterval    time.Duration
	StageClearDelay time.Duration
	Rules           game.Rules
	// Now 默认 time.Now，测试可注入
	Now func() time.Time
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = game.TickInterval
	}
	if c.StageClearDelay <= 0 {
		c.StageClearDelay = game.StageClearDelay
	}
	if c.Rules == (game.Rules{}) {
		c.Rules = game.DefaultRules()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Loop 单个房间的权威游戏循环。世界状态只在 Run 所在的协程中读写。
type Loop struct {
	code    string
	out     Broadcaster
	cfg     LoopConfig
	players owners
	inputs  chan game.Input
	metrics *RoomMetrics

	world game.World
	step  func(game.World, []game.Input, time.Time) (game.World, []game.Event)

	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	started   atomic.Bool
	completed atomic.Bool
}

// NewLoop 以房间当前成员与按键分配创建第 1 关
func NewLoop(room lobby.Room, levels game.LevelSet, out Broadcaster, cfg LoopConfig) (*Loop, error) {
	cfg = cfg.withDefaults()
	w, err := game.NewWorld(levels, 1, 0, cfg.Rules, cfg.Now())
	if err != nil {
		return nil, err
	}
	return &Loop{
		code:    room.Code,
		out:     out,
		cfg:     cfg,
		players: newOwners(room),
		inputs:  make(chan game.Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		metrics: &RoomMetrics{},
		world:   w,
		step:    game.Step,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func (l *Loop) Code() string          { return l.code }
func (l *Loop) Metrics() *RoomMetrics { return l.metrics }

// Done 在 Run 返回后关闭
func (l *Loop) Done() <-chan struct{} { return l.done }

// Completed 最后一关通关后为 true
func (l *Loop) Completed() bool { return l.completed.Load() }

// broadcastState 将当前世界状态广播给房间所有玩家
func (l *Loop) broadcastState() {
	l.out.Send(l.code, protocol.EventGameState, l.world.State())
}
