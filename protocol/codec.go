package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Frame 解出信封后的一帧，载荷延迟到知道具体类型时再解码
type Frame struct {
	Event   string
	payload []byte
	decode  func([]byte, any) error
}

// Payload 把载荷解码到 v。空载荷不是错误。
func (f Frame) Payload(v any) error {
	if len(f.payload) == 0 || f.decode == nil {
		return nil
	}
	if err := f.decode(f.payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, f.Event, err)
	}
	return nil
}

// Codec 负责信封 {t, p} 的编解码
type Codec interface {
	Name() string
	// Binary 为 true 时应以二进制帧发送
	Binary() bool
	Encode(event string, payload any) ([]byte, error)
	Decode(data []byte) (Frame, error)
}

// CodecByName 未知名称回退到 JSON
func CodecByName(name string) Codec {
	if name == MsgPack.Name() {
		return MsgPack
	}
	return JSON
}

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

type jsonEnvelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(event string, payload any) ([]byte, error) {
	env := struct {
		T string `json:"t"`
		P any    `json:"p,omitempty"`
	}{event, payload}
	return json.Marshal(env)
}

func (jsonCodec) Decode(data []byte) (Frame, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.T == "" {
		return Frame{}, fmt.Errorf("%w: missing event name", ErrMalformedPayload)
	}
	return Frame{Event: env.T, payload: env.P, decode: json.Unmarshal}, nil
}

// msgpack 沿用 json 标签，两种编码下字段名一致
const structTag = "json"

type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p,omitempty"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Encode(event string, payload any) ([]byte, error) {
	env := struct {
		T string `msgpack:"t"`
		P any    `msgpack:"p,omitempty"`
	}{event, payload}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Decode(data []byte) (Frame, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.T == "" {
		return Frame{}, fmt.Errorf("%w: missing event name", ErrMalformedPayload)
	}
	return Frame{Event: env.T, payload: env.P, decode: unmarshalMsgpack}, nil
}

func unmarshalMsgpack(b []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag(structTag)
	return dec.Decode(v)
}
