package game

import (
	"fmt"
	"time"
)

// ObstacleCulprit 障碍致死时的 culpritNickname
const ObstacleCulprit = "obstacle"

// Input 一次已授权的按键，按到达顺序在下一个 Tick 处理
type Input struct {
	Key      Key
	PlayerID string
	Nickname string
}

// Event Step 产生的离散事件
type Event interface {
	event()
}

// DeathEvent 每次死亡发送一次，随后清空死亡日志
type DeathEvent struct {
	Deaths          int             `json:"deaths"`
	Log             []DeathLogEntry `json:"log"`
	CulpritID       string          `json:"culpritId"`
	CulpritNickname string          `json:"culpritNickname"`
}

// StageClearEvent 非最后一关通关
type StageClearEvent struct {
	Stage     int `json:"stage"`
	NextStage int `json:"nextStage"`
	Deaths    int `json:"deaths"`
}

// CompleteEvent 最后一关通关，终态
type CompleteEvent struct {
	Deaths      int   `json:"deaths"`
	ElapsedTime int64 `json:"elapsedTime"`
}

func (DeathEvent) event()      {}
func (StageClearEvent) event() {}
func (CompleteEvent) event()   {}

// Step 推进一个 Tick：障碍移动 -> 逐个输入移动并检测碰撞 -> 金币/终点。
// 非 playing 阶段直接返回原状态。
func Step(w World, inputs []Input, now time.Time) (World, []Event) {
	if w.phase != PhasePlaying {
		return w, nil
	}
	w = w.clone()
	w.tick++
	w.elapsed = now.Sub(w.startedAt)

	w.obstacles.Update()
	if w.obstacles.CheckCollision(w.position) {
		return w, []Event{w.die(false)}
	}

	if len(inputs) == 0 {
		w.moving = false
		return w, nil
	}

	t := w.rules.Tuning
	for _, in := range inputs {
		dir := in.Key.Direction()
		if dir == "" {
			continue
		}
		next := Move(w.position, dir, t.Step)
		w.deathLog.Record(DeathLogEntry{
			Tick:      w.tick,
			Key:       in.Key,
			PlayerID:  in.PlayerID,
			Nickname:  in.Nickname,
			Direction: dir,
		})

		// 候选位置即提交位置，这里的障碍检测同时覆盖了提交后的复查
		if CheckWallCollision(next, w.tiles, t) || w.obstacles.CheckCollision(next) {
			return w, []Event{w.die(true)}
		}

		w.position = next
		w.direction = dir
		w.moving = true

		for _, key := range CheckCoinCollection(w.position, w.tiles, w.collected, t) {
			w.collected[key] = struct{}{}
			w.order = append(w.order, key)
			w.coins++
		}

		if w.coins == w.totalCoins && CheckGoalReached(w.position, w.tiles, t) {
			return w, []Event{w.clearStage()}
		}
	}
	return w, nil
}

// die 死亡计数 +1，回到起点；byInput=false 时归咎于障碍
func (w *World) die(byInput bool) DeathEvent {
	w.deaths++
	w.resetPosition()

	ev := DeathEvent{Deaths: w.deaths, Log: w.deathLog.Log()}
	if byInput {
		if c, ok := w.deathLog.Culprit(); ok {
			ev.CulpritID = c.PlayerID
			ev.CulpritNickname = c.Nickname
		}
	} else {
		ev.CulpritNickname = ObstacleCulprit
	}
	w.deathLog.Clear()
	return ev
}

func (w *World) clearStage() Event {
	if w.IsFinalStage() {
		w.phase = PhaseComplete
		return CompleteEvent{Deaths: w.deaths, ElapsedTime: w.elapsed.Milliseconds()}
	}
	w.phase = PhaseStageClear
	return StageClearEvent{Stage: w.stage, NextStage: w.stage + 1, Deaths: w.deaths}
}

// NextStage stage-clear 之后构造下一关：新位置、新金币、新障碍、空死亡日志，
// 死亡数与开局时间沿用。
func NextStage(w World, now time.Time) (World, error) {
	if w.phase != PhaseStageClear {
		return w, fmt.Errorf("next stage from phase %q", w.phase)
	}
	next, err := NewWorld(w.levels, w.stage+1, w.deaths, w.rules, w.startedAt)
	if err != nil {
		return w, err
	}
	next.elapsed = now.Sub(w.startedAt)
	return next, nil
}
