package server

import (
	"sync"
	"time"

	"wasd/game"
	"wasd/lobby"
	"wasd/protocol"
)

// Settings 新开局使用的参数，可通过 /admin/config 修改，不影响进行中的对局
type Settings struct {
	// TickRate 配置的每秒帧数；TickInterval 由它按整毫秒取整得出
	TickRate        int
	TickInterval    time.Duration
	StageClearDelay time.Duration
	Rules           game.Rules
}

func DefaultSettings() Settings {
	return SettingsForRate(game.TickRate)
}

// SettingsForRate 每帧步长随帧率换算，保持玩家速度不变
func SettingsForRate(hz int) Settings {
	return Settings{
		TickRate:        hz,
		TickInterval:    game.IntervalForRate(hz),
		StageClearDelay: game.StageClearDelay,
		Rules:           game.Rules{Tuning: game.TuningForRate(hz), DeathLogSize: game.DeathLogSize},
	}
}

// Rate 未显式配置帧率时由间隔反推
func (s Settings) Rate() int {
	if s.TickRate > 0 {
		return s.TickRate
	}
	if s.TickInterval <= 0 {
		return game.TickRate
	}
	return int(time.Second / s.TickInterval)
}

// Hub 把传输层消息分发到房间注册表与各房间的游戏循环。
// mu 保护 loops 以及对 lobby 的复合操作。
type Hub struct {
	mu        sync.Mutex
	lobby     *lobby.Manager
	transport Transport
	levels    game.LevelSet
	settings  Settings
	loops     map[string]*Loop
	metrics   *ServerMetrics
	now       func() time.Time
}

func NewHub(rooms *lobby.Manager, t Transport, levels game.LevelSet, s Settings) *Hub {
	h := &Hub{
		lobby:     rooms,
		transport: t,
		levels:    levels,
		settings:  s,
		loops:     make(map[string]*Loop),
		metrics:   &ServerMetrics{},
		now:       time.Now,
	}
	t.OnMessage(h.Handle)
	t.OnDisconnect(h.Disconnect)
	return h
}

// Handle 处理一条已校验的客户端消息
func (h *Hub) Handle(playerID string, msg protocol.ClientMessage) {
	switch m := msg.(type) {
	case protocol.CreateRoom:
		h.createRoom(playerID, m.Nickname)
	case protocol.JoinRoom:
		h.joinRoom(playerID, m.Code, m.Nickname)
	case protocol.LeaveRoom:
		h.leave(playerID, false)
	case protocol.SoloStart:
		h.soloStart(playerID, m.Nickname)
	case protocol.StartGame:
		h.startGame(playerID)
	case protocol.Input:
		h.input(playerID, m.Key)
	}
}

// Disconnect 连接断开：与离开房间相同，另外通知剩余玩家
func (h *Hub) Disconnect(playerID string) {
	h.leave(playerID, true)
}

func (h *Hub) sendError(playerID string, err error) {
	h.transport.SendTo(playerID, protocol.EventError, protocol.Error{Message: err.Error()})
}

func (h *Hub) createRoom(playerID, nickname string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, err := h.lobby.CreateRoom(playerID, nickname)
	if err != nil {
		h.sendError(playerID, err)
		return
	}
	h.metrics.IncRoomsCreated()
	h.transport.Join(room.Code, playerID)
	Log.Infow("room created", "room", room.Code, "host", playerID)
	h.transport.Send(room.Code, protocol.EventRoomUpdated, room)
}

func (h *Hub) joinRoom(playerID, code, nickname string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, err := h.lobby.JoinRoom(code, playerID, nickname)
	if err != nil {
		h.sendError(playerID, err)
		return
	}
	h.transport.Join(room.Code, playerID)
	Log.Infow("room joined", "room", room.Code, "player", playerID, "players", len(room.Players))
	h.transport.Send(room.Code, protocol.EventRoomUpdated, room)
}

func (h *Hub) soloStart(playerID, nickname string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, err := h.lobby.CreateRoom(playerID, nickname)
	if err != nil {
		h.sendError(playerID, err)
		return
	}
	h.transport.Join(room.Code, playerID)

	started, assignments, err := h.lobby.StartGame(room.Code, playerID, 1)
	if err == nil {
		err = h.startLoopLocked(started, assignments)
	}
	if err != nil {
		// 开局失败时撤销刚建的房间，不留下无人知晓的空房
		h.transport.Leave(room.Code, playerID)
		h.lobby.LeaveRoom(room.Code, playerID)
		Log.Warnw("solo start failed", "room", room.Code, "player", playerID, "error", err)
		h.sendError(playerID, err)
		return
	}
	h.metrics.IncRoomsCreated()
}

// startGame 非房主、阶段不对或人数不足都静默忽略
func (h *Hub) startGame(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.lobby.RoomByPlayer(playerID)
	if !ok {
		return
	}
	room, assignments, err := h.lobby.StartGame(current.Code, playerID, game.MinPlayers)
	if err != nil {
		Log.Debugw("start ignored", "room", current.Code, "player", playerID, "reason", err)
		return
	}
	if err := h.startLoopLocked(room, assignments); err != nil {
		if reset, ok := h.lobby.SetPhase(room.Code, game.PhaseLobby); ok {
			h.transport.Send(room.Code, protocol.EventRoomUpdated, reset)
		}
	}
}

func (h *Hub) startLoopLocked(room lobby.Room, assignments []lobby.KeyAssignment) error {
	s := h.settings
	l, err := NewLoop(room, h.levels, h.transport, LoopConfig{
		TickInterval:    s.TickInterval,
		StageClearDelay: s.StageClearDelay,
		Rules:           s.Rules,
		Now:             h.now,
	})
	if err != nil {
		Log.Errorw("create loop", "room", room.Code, "error", err)
		return err
	}
	if old := h.loops[room.Code]; old != nil {
		old.Stop()
	}
	h.loops[room.Code] = l
	h.metrics.IncGamesStarted()

	Log.Infow("game started", "room", room.Code, "players", len(room.Players))
	h.transport.Send(room.Code, protocol.EventGameStarted, protocol.GameStarted{Room: room, Assignments: assignments})
	l.Start(h.loopFinished)
	return nil
}

// loopFinished 整局通关后房间回到 lobby，便于再来一局
func (h *Hub) loopFinished(l *Loop) {
	if !l.Completed() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.loops[l.Code()] != l {
		return
	}
	delete(h.loops, l.Code())
	h.metrics.IncGamesCompleted()
	if room, ok := h.lobby.SetPhase(l.Code(), game.PhaseLobby); ok {
		h.transport.Send(room.Code, protocol.EventRoomUpdated, room)
	}
}

func (h *Hub) input(playerID string, key game.Key) {
	h.mu.Lock()
	room, ok := h.lobby.RoomByPlayer(playerID)
	var l *Loop
	if ok {
		l = h.loops[room.Code]
	}
	h.mu.Unlock()

	if l == nil {
		return
	}
	l.Queue(playerID, key)
}

// leave 停止该房间的游戏循环（连同两个计时器），剩余玩家回到 lobby
func (h *Hub) leave(playerID string, disconnected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.lobby.RoomByPlayer(playerID)
	if !ok {
		return
	}
	h.transport.Leave(room.Code, playerID)

	if l := h.loops[room.Code]; l != nil {
		delete(h.loops, room.Code)
		l.Stop()
	}

	updated, alive := h.lobby.LeaveRoom(room.Code, playerID)
	if !alive {
		Log.Infow("room closed", "room", room.Code)
		return
	}
	if updated.Phase != game.PhaseLobby {
		updated, _ = h.lobby.Update(room.Code, func(r *lobby.Room) {
			r.Phase = game.PhaseLobby
			r.Stage = 1
		})
	}
	Log.Infow("room left", "room", room.Code, "player", playerID, "disconnected", disconnected, "host", updated.HostID)

	h.transport.Send(room.Code, protocol.EventRoomUpdated, updated)
	if disconnected {
		h.transport.Send(room.Code, protocol.EventPlayerDisconnected, protocol.PlayerDisconnected{PlayerID: playerID})
	}
}

// Settings 当前新开局参数
func (h *Hub) Settings() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

func (h *Hub) SetSettings(s Settings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings = s
}

func (h *Hub) Levels() game.LevelSet { return h.levels }
func (h *Hub) Rooms() []lobby.Room    { return h.lobby.Rooms() }

// Room 按邀请码查询，用于二维码等只读接口
func (h *Hub) Room(code string) (lobby.Room, bool) { return h.lobby.Room(code) }

// RoomMetrics 进行中的各局指标
func (h *Hub) RoomMetrics() map[string]map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]map[string]any, len(h.loops))
	for code, l := range h.loops {
		out[code] = l.Metrics().Snapshot()
	}
	return out
}

func (h *Hub) ServerMetrics() *ServerMetrics { return h.metrics }

// Close 停止全部游戏循环，房间回到 lobby
func (h *Hub) Close() {
	h.mu.Lock()
	loops := h.loops
	h.loops = make(map[string]*Loop)
	h.mu.Unlock()

	for code, l := range loops {
		l.Stop()
		h.lobby.SetPhase(code, game.PhaseLobby)
	}
}
