package protocol

import (
	"errors"
	"fmt"
	"strings"

	"wasd/game"
	"wasd/lobby"
)

var (
	ErrInvalidKey  = errors.New("invalid key")
	ErrMissingCode = errors.New("room code is required")
)

// ClientMessage 客户端消息的和类型，只有本包内的变体实现它
type ClientMessage interface {
	Event() string
	clientMessage()
}

type CreateRoom struct {
	Nickname string `json:"nickname"`
}

type JoinRoom struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

type LeaveRoom struct{}

type SoloStart struct {
	Nickname string `json:"nickname"`
}

type StartGame struct{}

type Input struct {
	Key game.Key `json:"key"`
}

func (CreateRoom) Event() string { return EventCreateRoom }
func (JoinRoom) Event() string   { return EventJoinRoom }
func (LeaveRoom) Event() string  { return EventLeaveRoom }
func (SoloStart) Event() string  { return EventSoloStart }
func (StartGame) Event() string  { return EventStartGame }
func (Input) Event() string      { return EventInput }

func (CreateRoom) clientMessage() {}
func (JoinRoom) clientMessage()   {}
func (LeaveRoom) clientMessage()  {}
func (SoloStart) clientMessage()  {}
func (StartGame) clientMessage()  {}
func (Input) clientMessage()      {}

// ParseClientMessage 把一帧解析为具体变体并做结构校验。
// 昵称长度由 lobby 校验，这里只拒绝格式不对的消息。
func ParseClientMessage(f Frame) (ClientMessage, error) {
	switch f.Event {
	case EventCreateRoom:
		var m CreateRoom
		if err := f.Payload(&m); err != nil {
			return nil, err
		}
		return m, nil

	case EventJoinRoom:
		var m JoinRoom
		if err := f.Payload(&m); err != nil {
			return nil, err
		}
		m.Code = lobby.NormalizeCode(m.Code)
		if m.Code == "" {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, ErrMissingCode)
		}
		return m, nil

	case EventLeaveRoom:
		return LeaveRoom{}, nil

	case EventSoloStart:
		var m SoloStart
		if err := f.Payload(&m); err != nil {
			return nil, err
		}
		return m, nil

	case EventStartGame:
		return StartGame{}, nil

	case EventInput:
		var m Input
		if err := f.Payload(&m); err != nil {
			return nil, err
		}
		m.Key = game.Key(strings.ToLower(string(m.Key)))
		if !m.Key.Valid() {
			return nil, fmt.Errorf("%w: %w %q", ErrMalformedPayload, ErrInvalidKey, m.Key)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
}

// 服务端载荷

type Welcome struct {
	PlayerID string `json:"playerId"`
	Codec    string `json:"codec"`
}

type GameStarted struct {
	Room        lobby.Room            `json:"room"`
	Assignments []lobby.KeyAssignment `json:"assignments"`
}

type PlayerDisconnected struct {
	PlayerID string `json:"playerId"`
}

type Error struct {
	Message string `json:"message"`
}

// ParseServerMessage 客户端侧使用，按事件名返回具体载荷（值类型）
func ParseServerMessage(f Frame) (any, error) {
	var v any
	switch f.Event {
	case EventWelcome:
		v = &Welcome{}
	case EventRoomUpdated:
		v = &lobby.Room{}
	case EventGameStarted:
		v = &GameStarted{}
	case EventGameState:
		v = &game.GameState{}
	case EventDeath:
		v = &game.DeathEvent{}
	case EventStageClear:
		v = &game.StageClearEvent{}
	case EventGameComplete:
		v = &game.CompleteEvent{}
	case EventPlayerDisconnected:
		v = &PlayerDisconnected{}
	case EventError:
		v = &Error{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	if err := f.Payload(v); err != nil {
		return nil, err
	}
	return deref(v), nil
}

func deref(v any) any {
	switch p := v.(type) {
	case *Welcome:
		return *p
	case *lobby.Room:
		return *p
	case *GameStarted:
		return *p
	case *game.GameState:
		return *p
	case *game.DeathEvent:
		return *p
	case *game.StageClearEvent:
		return *p
	case *game.CompleteEvent:
		return *p
	case *PlayerDisconnected:
		return *p
	case *Error:
		return *p
	}
	return v
}
