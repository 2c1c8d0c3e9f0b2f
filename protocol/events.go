// Package protocol 定义客户端与服务端之间的消息：事件名、{t,p} 信封、编解码器和各类载荷。
package protocol

// 客户端 -> 服务端
const (
	EventCreateRoom = "create-room"
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
	EventSoloStart  = "solo-start"
	EventStartGame  = "start-game"
	EventInput      = "input"
)

// 服务端 -> 客户端
const (
	EventWelcome            = "welcome"
	EventRoomUpdated        = "room-updated"
	EventGameStarted        = "game-started"
	EventGameState          = "game-state"
	EventDeath              = "death"
	EventStageClear         = "stage-clear"
	EventGameComplete       = "game-complete"
	EventPlayerDisconnected = "player-disconnected"
	EventError              = "error"
)
