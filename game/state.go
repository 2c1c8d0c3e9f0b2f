package game

import (
	"fmt"
	"time"
)

// Phase 房间/对局阶段
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhasePlaying    Phase = "playing"
	PhaseStageClear Phase = "stage-clear"
	PhaseComplete   Phase = "complete"
)

// GameState 每 Tick 广播的权威状态
type GameState struct {
	Position       Position   `json:"position"`
	Direction      Direction  `json:"direction"`
	Moving         bool       `json:"moving"`
	Coins          int        `json:"coins"`
	TotalCoins     int        `json:"totalCoins"`
	Deaths         int        `json:"deaths"`
	Stage          int        `json:"stage"`
	TotalStages    int        `json:"totalStages"`
	ElapsedTime    int64      `json:"elapsedTime"`
	Phase          Phase      `json:"phase"`
	Obstacles      []Obstacle `json:"obstacles"`
	CollectedCoins []string   `json:"collectedCoins"`
}

// World 一个房间的全部权威模拟状态。值语义：Step 返回新的 World，
// 原值保持不变，便于 Tick 出错时回退到上一次提交的状态。
type World struct {
	levels LevelSet
	rules  Rules
	tiles  TileMap

	stage int
	phase Phase

	position  Position
	direction Direction
	moving    bool

	coins      int
	totalCoins int
	deaths     int
	collected  map[string]struct{}
	order      []string // collected 的插入顺序

	obstacles ObstacleManager
	deathLog  DeathLog

	tick      int64
	startedAt time.Time
	elapsed   time.Duration
}

// NewWorld 构造第 stage 关（1-based）的初始状态，死亡数沿用 carryDeaths
func NewWorld(levels LevelSet, stage, carryDeaths int, rules Rules, startedAt time.Time) (World, error) {
	lv, ok := levels.Stage(stage)
	if !ok {
		return World{}, fmt.Errorf("invalid stage: %d", stage)
	}
	w := World{
		levels:     levels,
		rules:      rules,
		tiles:      lv.Tiles,
		stage:      stage,
		phase:      PhasePlaying,
		deaths:     carryDeaths,
		totalCoins: lv.Tiles.CountCoins(),
		obstacles:  NewObstacleManager(lv.Obstacles, rules.Tuning.PlayerSize),
		deathLog:   NewDeathLog(rules.DeathLogSize),
		startedAt:  startedAt,
	}
	w.resetPosition()
	return w, nil
}

// resetPosition 回到起点，清空本关金币
func (w *World) resetPosition() {
	w.position = w.tiles.StartPosition(w.rules.Tuning)
	w.direction = DirRight
	w.moving = false
	w.coins = 0
	w.collected = make(map[string]struct{})
	w.order = nil
}

func (w World) clone() World {
	c := w
	c.collected = make(map[string]struct{}, len(w.collected))
	for k := range w.collected {
		c.collected[k] = struct{}{}
	}
	c.order = append([]string(nil), w.order...)
	c.obstacles = w.obstacles.clone()
	c.deathLog = w.deathLog.clone()
	return c
}

// State 广播快照
func (w World) State() GameState {
	return GameState{
		Position:       w.position,
		Direction:      w.direction,
		Moving:         w.moving,
		Coins:          w.coins,
		TotalCoins:     w.totalCoins,
		Deaths:         w.deaths,
		Stage:          w.stage,
		TotalStages:    len(w.levels),
		ElapsedTime:    w.elapsed.Milliseconds(),
		Phase:          w.phase,
		Obstacles:      w.obstacles.Obstacles(),
		CollectedCoins: append([]string{}, w.order...),
	}
}

func (w World) Phase() Phase { return w.phase }
func (w World) Stage() int { return w.stage }
func (w World) Deaths() int { return w.deaths }
func (w World) Tick() int64 { return w.tick }
func (w World) Tiles() TileMap { return w.tiles }
func (w World) Position() Position { return w.position }

// DeathLog 当前缓冲副本
func (w World) DeathLog() []DeathLogEntry { return w.deathLog.Log() }

// IsFinalStage 当前是否最后一关
func (w World) IsFinalStage() bool { return w.stage >= len(w.levels) }
