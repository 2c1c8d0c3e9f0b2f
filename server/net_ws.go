package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"wasd/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4 << 10
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws       *websocket.Conn
	codec    protocol.Codec
	playerID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec, playerID string) *ClientConn {
	return &ClientConn{
		ws:       ws,
		codec:    codec,
		playerID: playerID,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃，防止阻塞 Tick）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		Log.Debugw("send queue full, dropping frame", "player", c.playerID)
		return false
	}
}

// Close 可重复调用；发送队列不关闭，写协程通过 done 退出
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时 ping
func (c *ClientConn) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.Close()
	}()

	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(msgType, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息，解码校验后交给 dispatch
func (c *ClientConn) readPump(t *WSTransport) {
	defer c.Close()
	c.ws.SetReadLimit(maxMessage)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("read error", "player", c.playerID, "error", err)
			}
			return
		}
		t.dispatch(c, payload)
	}
}

// WSTransport 基于 gorilla/websocket 的 Transport 实现
type WSTransport struct {
	mu    sync.RWMutex
	conns map[string]*ClientConn
	rooms map[string]map[string]struct{}

	onMessage    func(playerID string, msg protocol.ClientMessage)
	onDisconnect func(playerID string)

	upgrader websocket.Upgrader
}

// NewWSTransport allowedOrigin 为空时允许任意来源
func NewWSTransport(allowedOrigin string) *WSTransport {
	return &WSTransport{
		conns: make(map[string]*ClientConn),
		rooms: make(map[string]map[string]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (t *WSTransport) OnMessage(fn func(playerID string, msg protocol.ClientMessage)) {
	t.mu.Lock()
	t.onMessage = fn
	t.mu.Unlock()
}

func (t *WSTransport) OnDisconnect(fn func(playerID string)) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}

func (t *WSTransport) Join(room, playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		t.rooms[room] = members
	}
	members[playerID] = struct{}{}
}

func (t *WSTransport) Leave(room, playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	members := t.rooms[room]
	delete(members, playerID)
	if len(members) == 0 {
		delete(t.rooms, room)
	}
}

// Send 广播到房间。同一编码只序列化一次。
func (t *WSTransport) Send(room, event string, payload any) {
	t.mu.RLock()
	targets := make([]*ClientConn, 0, len(t.rooms[room]))
	for id := range t.rooms[room] {
		if c, ok := t.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	t.mu.RUnlock()

	encoded := make(map[string][]byte, 2)
	for _, c := range targets {
		b, ok := encoded[c.codec.Name()]
		if !ok {
			var err error
			b, err = c.codec.Encode(event, payload)
			if err != nil {
				Log.Errorw("encode", "event", event, "codec", c.codec.Name(), "error", err)
				return
			}
			encoded[c.codec.Name()] = b
		}
		c.Enqueue(b)
	}
}

func (t *WSTransport) SendTo(playerID, event string, payload any) {
	t.mu.RLock()
	c, ok := t.conns[playerID]
	t.mu.RUnlock()
	if ok {
		t.sendConn(c, event, payload)
	}
}

func (t *WSTransport) sendConn(c *ClientConn, event string, payload any) {
	b, err := c.codec.Encode(event, payload)
	if err != nil {
		Log.Errorw("encode", "event", event, "codec", c.codec.Name(), "error", err)
		return
	}
	c.Enqueue(b)
}

// Len 当前连接数
func (t *WSTransport) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// dispatch 解码失败回复 ERROR；非法按键静默丢弃
func (t *WSTransport) dispatch(c *ClientConn, data []byte) {
	frame, err := c.codec.Decode(data)
	var msg protocol.ClientMessage
	if err == nil {
		msg, err = protocol.ParseClientMessage(frame)
	}
	if err != nil {
		if errors.Is(err, protocol.ErrInvalidKey) {
			Log.Debugw("invalid key dropped", "player", c.playerID, "error", err)
			return
		}
		Log.Debugw("rejected frame", "player", c.playerID, "error", err)
		t.sendConn(c, protocol.EventError, protocol.Error{Message: err.Error()})
		return
	}

	t.mu.RLock()
	handler := t.onMessage
	t.mu.RUnlock()
	if handler != nil {
		handler(c.playerID, msg)
	}
}

func (t *WSTransport) register(c *ClientConn) {
	t.mu.Lock()
	t.conns[c.playerID] = c
	t.mu.Unlock()
}

func (t *WSTransport) unregister(c *ClientConn) {
	t.mu.Lock()
	if t.conns[c.playerID] == c {
		delete(t.conns, c.playerID)
	}
	handler := t.onDisconnect
	t.mu.Unlock()
	if handler != nil {
		handler(c.playerID)
	}
}

// ServeWS WebSocket 接入：/ws?codec=msgpack 选择二进制编码，默认 JSON。
// 每个连接分配新的玩家 ID，并以 welcome 消息告知客户端。
func (t *WSTransport) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	codec := protocol.CodecByName(r.URL.Query().Get("codec"))

	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := NewClientConn(ws, codec, uuid.NewString())
	t.register(c)
	Log.Infow("connected", "player", c.playerID, "codec", codec.Name(), "remote", r.RemoteAddr)
	t.sendConn(c, protocol.EventWelcome, protocol.Welcome{PlayerID: c.playerID, Codec: codec.Name()})

	go c.writePump()
	c.readPump(t)

	t.unregister(c)
	Log.Infow("disconnected", "player", c.playerID)
}
