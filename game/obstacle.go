package game

import "math"

// ObstacleConfig 巡逻障碍的静态配置
type ObstacleConfig struct {
	ID        string     `json:"id"`
	Waypoints []Position `json:"waypoints"`
	Speed     float64    `json:"speed"`
	Size      Size       `json:"size"`
}

// Obstacle 广播用的运行时投影
type Obstacle struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
}

type obstacleRuntime struct {
	config   *ObstacleConfig
	position Position
	index    int
	forward  bool
}

// ObstacleManager 按 Tick 推进所有障碍（往返巡逻）
type ObstacleManager struct {
	obstacles  []obstacleRuntime
	playerSize float64
}

// NewObstacleManager 障碍从第一个路点出发
func NewObstacleManager(configs []ObstacleConfig, playerSize float64) ObstacleManager {
	m := ObstacleManager{
		obstacles:  make([]obstacleRuntime, len(configs)),
		playerSize: playerSize,
	}
	for i := range configs {
		cfg := &configs[i]
		var start Position
		if len(cfg.Waypoints) > 0 {
			start = cfg.Waypoints[0]
		}
		m.obstacles[i] = obstacleRuntime{config: cfg, position: start, forward: true}
	}
	return m
}

// Update 推进一个 Tick；少于 2 个路点的障碍静止
func (m *ObstacleManager) Update() {
	for i := range m.obstacles {
		obs := &m.obstacles[i]
		wps := obs.config.Waypoints
		if len(wps) < 2 {
			continue
		}

		target := obs.nextIndex()
		if target < 0 || target >= len(wps) {
			obs.forward = !obs.forward
			target = obs.nextIndex()
			if target < 0 || target >= len(wps) {
				continue
			}
		}

		dst := wps[target]
		dx := dst.X - obs.position.X
		dy := dst.Y - obs.position.Y
		dist := math.Hypot(dx, dy)
		speed := obs.config.Speed

		if dist <= speed {
			obs.position = dst
			obs.index = target
			if target == 0 || target == len(wps)-1 {
				obs.forward = !obs.forward
			}
			continue
		}
		obs.position.X += dx / dist * speed
		obs.position.Y += dy / dist * speed
	}
}

func (o *obstacleRuntime) nextIndex() int {
	if o.forward {
		return o.index + 1
	}
	return o.index - 1
}

// Obstacles 当前位置快照
func (m ObstacleManager) Obstacles() []Obstacle {
	out := make([]Obstacle, len(m.obstacles))
	for i, obs := range m.obstacles {
		out[i] = Obstacle{ID: obs.config.ID, Position: obs.position, Size: obs.config.Size}
	}
	return out
}

// CheckCollision 玩家包围盒与任一障碍 AABB 重叠
func (m ObstacleManager) CheckCollision(p Position) bool {
	for _, obs := range m.obstacles {
		if overlapsAABB(p, Size{Width: m.playerSize, Height: m.playerSize}, obs.position, obs.config.Size) {
			return true
		}
	}
	return false
}

func overlapsAABB(ap Position, as Size, bp Position, bs Size) bool {
	return ap.X < bp.X+bs.Width &&
		ap.X+as.Width > bp.X &&
		ap.Y < bp.Y+bs.Height &&
		ap.Y+as.Height > bp.Y
}

// clone 仅复制运行时状态，配置共享只读
func (m ObstacleManager) clone() ObstacleManager {
	c := m
	c.obstacles = append([]obstacleRuntime(nil), m.obstacles...)
	return c
}
