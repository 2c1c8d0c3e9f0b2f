package server

import (
	"sync/atomic"
)

// RoomMetrics 单局游戏运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 入队的输入数
	Unauthorized      int64 // 按键不属于该玩家而被忽略的输入数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	Deaths            int64
	TickPanics        int64 // Tick 中被 recover 的 panic 次数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncUnauthorized()      { atomic.AddInt64(&m.Unauthorized, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncDeaths()            { atomic.AddInt64(&m.Deaths, 1) }
func (m *RoomMetrics) IncTickPanics()        { atomic.AddInt64(&m.TickPanics, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"unauthorized":        atomic.LoadInt64(&m.Unauthorized),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"deaths":              atomic.LoadInt64(&m.Deaths),
		"tick_panics":         atomic.LoadInt64(&m.TickPanics),
		"avg_tick_ms":         avgMs,
	}
}

// ServerMetrics 进程级计数
type ServerMetrics struct {
	RoomsCreated   int64
	GamesStarted   int64
	GamesCompleted int64
}

func (m *ServerMetrics) IncRoomsCreated()   { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *ServerMetrics) IncGamesStarted()   { atomic.AddInt64(&m.GamesStarted, 1) }
func (m *ServerMetrics) IncGamesCompleted() { atomic.AddInt64(&m.GamesCompleted, 1) }

func (m *ServerMetrics) Snapshot() map[string]any {
	return map[string]any{
		"rooms_created":   atomic.LoadInt64(&m.RoomsCreated),
		"games_started":   atomic.LoadInt64(&m.GamesStarted),
		"games_completed": atomic.LoadInt64(&m.GamesCompleted),
	}
}
