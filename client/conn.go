package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wasd/protocol"
)

const writeWait = 5 * time.Second

// Event 一条服务端消息；Payload 为 protocol.ParseServerMessage 返回的具体类型
type Event struct {
	Name    string
	Payload any
}

// Conn 客户端 WebSocket 连接
type Conn struct {
	ws    *websocket.Conn
	codec protocol.Codec

	writeMu sync.Mutex
	events  chan Event

	playerID string
	welcomed chan struct{}
	done     chan struct{}
	closing  chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

type dialOptions struct {
	codec  protocol.Codec
	dialer *websocket.Dialer
	buffer int
}

type DialOption func(*dialOptions)

// WithCodec 选择编码，服务端按 ?codec= 匹配
func WithCodec(c protocol.Codec) DialOption {
	return func(o *dialOptions) { o.codec = c }
}

func WithDialer(d *websocket.Dialer) DialOption {
	return func(o *dialOptions) { o.dialer = d }
}

// WithEventBuffer 事件通道容量，消费过慢时读协程会阻塞
func WithEventBuffer(n int) DialOption {
	return func(o *dialOptions) { o.buffer = n }
}

// Dial 连接服务端并等待 welcome，rawURL 形如 ws://host:port/ws
func Dial(ctx context.Context, rawURL string, opts ...DialOption) (*Conn, error) {
	o := dialOptions{codec: protocol.JSON, dialer: websocket.DefaultDialer, buffer: 256}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("codec", o.codec.Name())
	u.RawQuery = q.Encode()

	ws, _, err := o.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &Conn{
		ws:       ws,
		codec:    o.codec,
		events:   make(chan Event, o.buffer),
		welcomed: make(chan struct{}),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	go c.readLoop()

	select {
	case <-c.welcomed:
		return c, nil
	case <-c.done:
		return nil, fmt.Errorf("connection closed before welcome: %w", c.Err())
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

// PlayerID 服务端分配的玩家 ID
func (c *Conn) PlayerID() string {
	<-c.welcomed
	return c.playerID
}

// Events 连接关闭后通道关闭
func (c *Conn) Events() <-chan Event { return c.events }

// Send 发送一条客户端消息
func (c *Conn) Send(msg protocol.ClientMessage) error {
	b, err := c.codec.Encode(msg.Event(), msg)
	if err != nil {
		return err
	}
	mt := websocket.TextMessage
	if c.codec.Binary() {
		mt = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(mt, b)
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// Err 读协程退出的原因；正常关闭时为 nil
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) setErr(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed) {
		err = nil
	}
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.setErr(err)
			return
		}
		f, err := c.codec.Decode(data)
		if err != nil {
			continue
		}
		payload, err := protocol.ParseServerMessage(f)
		if err != nil {
			continue
		}
		if w, ok := payload.(protocol.Welcome); ok && c.playerID == "" {
			c.playerID = w.PlayerID
			close(c.welcomed)
		}
		select {
		case c.events <- Event{Name: f.Event, Payload: payload}:
		case <-c.closing:
			return
		}
	}
}
