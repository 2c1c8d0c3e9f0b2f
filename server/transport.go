package server

import "wasd/protocol"

// Broadcaster 游戏循环只需要向房间广播
type Broadcaster interface {
	Send(room, event string, payload any)
}

// Transport 把网络层与房间逻辑隔开。实现需保证并发安全。
type Transport interface {
	Broadcaster
	SendTo(playerID, event string, payload any)
	Join(room, playerID string)
	Leave(room, playerID string)
	OnMessage(func(playerID string, msg protocol.ClientMessage))
	OnDisconnect(func(playerID string))
}
