package server

import (
	"sync/atomic"
	"testing"
	"time"

	"wasd/game"
	"wasd/lobby"
	"wasd/protocol"
)

func newTestLoop(t *testing.T, room lobby.Room, stages int, out Broadcaster, tick time.Duration) *Loop {
	t.Helper()
	l, err := NewLoop(room, corridorLevels(t, stages), out, LoopConfig{
		TickInterval:    tick,
		StageClearDelay: 5 * time.Millisecond,
		Rules:           testRules(),
	})
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return l
}

func waitDone(t *testing.T, l *Loop) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not exit")
	}
}

func TestLoopFinalStageCompletesOnce(t *testing.T) {
	ft := newFakeTransport()
	l := newTestLoop(t, soloRoom("p1"), 1, ft, time.Millisecond)
	if !l.Queue("p1", game.KeyD) {
		t.Fatalf("owned key rejected")
	}
	l.Start(nil)
	waitDone(t, l)

	if !l.Completed() {
		t.Fatalf("loop exited without completing")
	}
	frames := ft.all()
	if len(frames) == 0 || frames[0].event != protocol.EventGameState {
		t.Fatalf("first frame should be the initial state, got %+v", frames)
	}
	completeAt := -1
	for i, fr := range frames {
		if fr.event == protocol.EventGameComplete {
			if completeAt >= 0 {
				t.Fatalf("game-complete sent twice")
			}
			completeAt = i
		}
	}
	if completeAt < 0 {
		t.Fatalf("no game-complete frame")
	}
	if completeAt != len(frames)-1 {
		t.Fatalf("frames after completion: %+v", frames[completeAt+1:])
	}
	done := frames[completeAt].payload.(game.CompleteEvent)
	if done.Deaths != 0 {
		t.Fatalf("deaths = %d", done.Deaths)
	}

	// 已退出的循环不再广播
	time.Sleep(10 * time.Millisecond)
	if n := len(ft.all()); n != len(frames) {
		t.Fatalf("loop kept broadcasting after completion")
	}
	l.Stop()
}

func TestLoopAdvancesStageAfterDelay(t *testing.T) {
	ft := newFakeTransport()
	l := newTestLoop(t, soloRoom("p1"), 2, ft, time.Millisecond)
	l.Queue("p1", game.KeyD)
	l.Start(nil)
	defer l.Stop()

	waitFor(t, "stage 2 state", func() bool {
		fr, ok := ft.last(protocol.EventGameState)
		return ok && fr.payload.(game.GameState).Stage == 2
	})

	frames := ft.all()
	clearAt := -1
	for i, fr := range frames {
		if fr.event == protocol.EventStageClear {
			clearAt = i
			sc := fr.payload.(game.StageClearEvent)
			if sc.Stage != 1 || sc.NextStage != 2 {
				t.Fatalf("unexpected stage clear: %+v", sc)
			}
		}
	}
	if clearAt < 0 {
		t.Fatalf("no stage-clear frame")
	}
	// 等待期间不广播状态，下一条就是第 2 关的初始状态
	next := frames[clearAt+1]
	st, ok := next.payload.(game.GameState)
	if next.event != protocol.EventGameState || !ok || st.Stage != 2 || st.Phase != game.PhasePlaying {
		t.Fatalf("expected stage 2 state right after stage clear, got %+v", next)
	}

	l.Queue("p1", game.KeyD)
	waitDone(t, l)
	if ft.count(protocol.EventGameComplete) != 1 {
		t.Fatalf("expected completion on stage 2")
	}
}

func TestLoopRecoversFromTickPanic(t *testing.T) {
	ft := newFakeTransport()
	l := newTestLoop(t, soloRoom("p1"), 1, ft, time.Millisecond)

	var calls atomic.Int32
	l.step = func(w game.World, in []game.Input, now time.Time) (game.World, []game.Event) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return game.Step(w, in, now)
	}
	l.Start(nil)
	defer l.Stop()

	waitFor(t, "ticks after panic", func() bool { return calls.Load() >= 3 })
	if got := l.Metrics().Snapshot()["tick_panics"]; got != int64(1) {
		t.Fatalf("tick_panics = %v", got)
	}

	l.Queue("p1", game.KeyD)
	waitDone(t, l)
	if !l.Completed() {
		t.Fatalf("loop should keep working after a panic")
	}
}

func TestLoopStop(t *testing.T) {
	ft := newFakeTransport()
	l := newTestLoop(t, soloRoom("p1"), 1, ft, time.Hour)
	l.Start(nil)
	l.Stop()
	select {
	case <-l.Done():
	default:
		t.Fatalf("Stop returned before the loop exited")
	}
	l.Stop()
	if l.Completed() {
		t.Fatalf("stopped loop reported completion")
	}

	idle := newTestLoop(t, soloRoom("p1"), 1, ft, time.Hour)
	idle.Stop() // 未启动时不应阻塞
}

func TestLoopStartCallsOnExit(t *testing.T) {
	ft := newFakeTransport()
	l := newTestLoop(t, soloRoom("p1"), 1, ft, time.Hour)
	exited := make(chan *Loop, 1)
	l.Start(func(l *Loop) { exited <- l })
	l.Start(nil) // 重复启动无效
	l.Stop()
	select {
	case got := <-exited:
		if got != l {
			t.Fatalf("onExit got a different loop")
		}
	case <-time.After(time.Second):
		t.Fatalf("onExit not called")
	}
}

func TestLoopQueueAuthorization(t *testing.T) {
	room := lobby.Room{
		Code: "DUO222",
		Players: []lobby.Player{
			{ID: "p1", Nickname: "one", Keys: []game.Key{game.KeyW, game.KeyD}},
			{ID: "p2", Nickname: "two", Keys: []game.Key{game.KeyA, game.KeyS}},
		},
	}
	l := newTestLoop(t, room, 1, newFakeTransport(), time.Hour)

	cases := []struct {
		player string
		key    game.Key
		want   bool
	}{
		{"p1", game.KeyW, true},
		{"p1", game.KeyA, false},
		{"p2", game.KeyA, true},
		{"ghost", game.KeyW, false},
		{"p1", game.Key("x"), false},
	}
	for _, tc := range cases {
		if got := l.Queue(tc.player, tc.key); got != tc.want {
			t.Errorf("Queue(%s, %q) = %v, want %v", tc.player, tc.key, got, tc.want)
		}
	}

	queued := l.drain()
	if len(queued) != 2 || queued[0].Nickname != "one" || queued[1].PlayerID != "p2" {
		t.Fatalf("queued inputs out of order: %+v", queued)
	}
	snap := l.Metrics().Snapshot()
	if snap["inputs_accepted"] != int64(2) || snap["unauthorized"] != int64(3) {
		t.Fatalf("metrics = %v", snap)
	}
}
