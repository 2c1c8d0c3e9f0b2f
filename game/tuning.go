package game

import "time"

const (
	// TickRate 权威模拟频率（30 TPS）
	TickRate = 30
	// PlayerSpeed 像素/秒
	PlayerSpeed = 120

	TileSize   = 32
	PlayerSize = 16
	MapCols    = 20
	MapRows    = 15

	// DeathLogSize 约 0.5 秒的输入
	DeathLogSize = 15

	MinPlayers = 2
	MaxPlayers = 4
)

var (
	TickInterval    = IntervalForRate(TickRate) // 33ms
	StageClearDelay = 2 * time.Second
)

// Tuning 几何参数：格子大小、玩家包围盒、每 Tick 步长
type Tuning struct {
	TileSize   float64 `json:"tileSize"`
	PlayerSize float64 `json:"playerSize"`
	Step       float64 `json:"step"`
}

// IntervalForRate 按整毫秒取整
func IntervalForRate(hz int) time.Duration {
	return time.Duration(1000/hz) * time.Millisecond
}

// DefaultTuning 4px/tick
func DefaultTuning() Tuning {
	return TuningForRate(TickRate)
}

// TuningForRate 调整 Tick 频率时保持 PlayerSpeed 不变
func TuningForRate(hz int) Tuning {
	return Tuning{
		TileSize:   TileSize,
		PlayerSize: PlayerSize,
		Step:       float64(PlayerSpeed) / float64(hz),
	}
}

// Rules 构造 World 所需的全部可调参数
type Rules struct {
	Tuning       Tuning
	DeathLogSize int
}

func DefaultRules() Rules {
	return Rules{Tuning: DefaultTuning(), DeathLogSize: DeathLogSize}
}
