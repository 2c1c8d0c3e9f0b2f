package game

// Key 四个移动键之一
type Key string

const (
	KeyW Key = "w"
	KeyA Key = "a"
	KeyS Key = "s"
	KeyD Key = "d"
)

// AllKeys 固定顺序 w,a,s,d
var AllKeys = []Key{KeyW, KeyA, KeyS, KeyD}

// Valid 仅接受 w/a/s/d
func (k Key) Valid() bool {
	switch k {
	case KeyW, KeyA, KeyS, KeyD:
		return true
	}
	return false
}

// Direction 移动方向
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Direction 键到方向的映射；非法键返回空方向
func (k Key) Direction() Direction {
	switch k {
	case KeyW:
		return DirUp
	case KeyA:
		return DirLeft
	case KeyS:
		return DirDown
	case KeyD:
		return DirRight
	}
	return ""
}

// Position 左上角像素坐标
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size 宽高
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Delta 方向乘以步长
func (d Direction) Delta(step float64) Position {
	switch d {
	case DirUp:
		return Position{Y: -step}
	case DirDown:
		return Position{Y: step}
	case DirLeft:
		return Position{X: -step}
	case DirRight:
		return Position{X: step}
	}
	return Position{}
}

// Move 按方向移动一步，返回候选位置（不做碰撞）
func Move(p Position, d Direction, step float64) Position {
	delta := d.Delta(step)
	return Position{X: p.X + delta.X, Y: p.Y + delta.Y}
}
