package server

import "wasd/game"

// Queue 入站输入（不立即改变位置），仅记录意图，等下一次 Tick 处理。
// 未持有该键的玩家、非法键都会被静默忽略。
func (l *Loop) Queue(playerID string, key game.Key) bool {
	in, ok := l.players.authorize(playerID, key)
	if !ok {
		l.metrics.IncUnauthorized()
		Log.Debugw("input ignored", "room", l.code, "player", playerID, "key", key)
		return false
	}
	// 不阻塞：输入拥塞时丢弃（由通道容量控制），保证 Tick 准时
	select {
	case l.inputs <- in:
		l.metrics.IncAccepted()
		return true
	default:
		l.metrics.IncChanFullDiscarded()
		return false
	}
}

// drain 非阻塞取出本帧全部输入，保持到达顺序
func (l *Loop) drain() []game.Input {
	var out []game.Input
	for {
		select {
		case in := <-l.inputs:
			out = append(out, in)
		default:
			return out
		}
	}
}
