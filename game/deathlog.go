package game

// DeathLogEntry 一次输入的因果记录
type DeathLogEntry struct {
	Tick      int64     `json:"tick"`
	Key       Key       `json:"key"`
	PlayerID  string    `json:"playerId"`
	Nickname  string    `json:"nickname"`
	Direction Direction `json:"direction"`
}

// DeathLog 有界环形缓冲，只保留最近 capacity 条
type DeathLog struct {
	capacity int
	entries  []DeathLogEntry
}

func NewDeathLog(capacity int) DeathLog {
	if capacity < 1 {
		capacity = 1
	}
	return DeathLog{capacity: capacity, entries: make([]DeathLogEntry, 0, capacity)}
}

// Record 追加并截断到最近 capacity 条
func (l *DeathLog) Record(e DeathLogEntry) {
	if l.capacity < 1 {
		l.capacity = DeathLogSize
	}
	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
}

// Log 返回副本
func (l DeathLog) Log() []DeathLogEntry {
	return append([]DeathLogEntry{}, l.entries...)
}

// Culprit 最近一条；缓冲为空时 ok=false
func (l DeathLog) Culprit() (DeathLogEntry, bool) {
	if len(l.entries) == 0 {
		return DeathLogEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

func (l *DeathLog) Clear() { l.entries = l.entries[:0] }

func (l DeathLog) Len() int { return len(l.entries) }

func (l DeathLog) Cap() int { return l.capacity }

func (l DeathLog) clone() DeathLog {
	c := DeathLog{capacity: l.capacity, entries: make([]DeathLogEntry, len(l.entries), l.capacity)}
	copy(c.entries, l.entries)
	return c
}
