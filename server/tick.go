package server

import (
	"runtime/debug"
	"time"

	"wasd/game"
	"wasd/protocol"
)

type tickResult struct {
	stageClear bool
	complete   bool
}

// Start 在独立协程中运行循环。onExit 在 Run 返回且 Done 关闭之后调用。
func (l *Loop) Start(onExit func(*Loop)) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		l.run()
		if onExit != nil {
			onExit(l)
		}
	}()
}

// Run 阻塞直到 Stop 或整局通关
func (l *Loop) Run() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	l.run()
}

// Stop 幂等；循环已启动时等待其退出，两个计时器都随之释放
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
	if l.started.Load() {
		<-l.done
	}
}

func (l *Loop) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	// 过关等待计时器，仅在 stage-clear 阶段非 nil
	var stageTimer *time.Timer
	var stageC <-chan time.Time
	defer func() {
		if stageTimer != nil {
			stageTimer.Stop()
		}
	}()

	l.broadcastState()
	for {
		select {
		case <-l.quit:
			return

		case <-ticker.C:
			// 核心循环：处理输入 → 更新世界 → 广播结果
			res := l.tick()
			if res.complete {
				return
			}
			if res.stageClear {
				stageTimer = time.NewTimer(l.cfg.StageClearDelay)
				stageC = stageTimer.C
			}

		case <-stageC:
			stageTimer, stageC = nil, nil
			l.advanceStage()
		}
	}
}

// tick 推进一帧。panic 时保留上一次提交的状态并重新广播，循环继续。
func (l *Loop) tick() (res tickResult) {
	if l.world.Phase() != game.PhasePlaying {
		return tickResult{}
	}
	start := time.Now()
	inputs := l.drain()
	defer func() {
		if p := recover(); p != nil {
			l.metrics.IncTickPanics()
			Log.Errorw("tick panic", "room", l.code, "tick", l.world.Tick(), "panic", p, "stack", string(debug.Stack()))
			l.broadcastState()
			res = tickResult{}
		}
		l.metrics.AddTick(time.Since(start).Nanoseconds())
	}()

	next, events := l.step(l.world, inputs, l.cfg.Now())
	l.world = next

	for _, ev := range events {
		switch e := ev.(type) {
		case game.DeathEvent:
			l.metrics.IncDeaths()
			Log.Infow("death", "room", l.code, "deaths", e.Deaths, "culprit", e.CulpritNickname)
			l.out.Send(l.code, protocol.EventDeath, e)

		case game.StageClearEvent:
			Log.Infow("stage clear", "room", l.code, "stage", e.Stage, "deaths", e.Deaths)
			l.out.Send(l.code, protocol.EventStageClear, e)
			res.stageClear = true

		case game.CompleteEvent:
			Log.Infow("game complete", "room", l.code, "deaths", e.Deaths, "elapsed_ms", e.ElapsedTime)
			l.out.Send(l.code, protocol.EventGameComplete, e)
			l.completed.Store(true)
			res.complete = true
		}
	}

	if !res.stageClear && !res.complete {
		l.broadcastState()
	}
	return res
}

// advanceStage 过关等待结束：构造下一关，清掉等待期间积压的输入
func (l *Loop) advanceStage() {
	next, err := game.NextStage(l.world, l.cfg.Now())
	if err != nil {
		Log.Errorw("advance stage", "room", l.code, "error", err)
		return
	}
	l.world = next
	l.drain()
	Log.Infow("stage started", "room", l.code, "stage", next.Stage())
	l.broadcastState()
}
