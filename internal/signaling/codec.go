package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes frames and payloads for one websocket connection.
type Codec interface {
	Name() string
	// MessageType is the websocket message type frames are written with.
	MessageType() int
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// CodecByName returns the codec registered under name. An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown signaling codec %q", name)
	}
}

// JSONCodec writes text frames.
type JSONCodec struct{}

func (JSONCodec) Name() string     { return CodecJSON }
func (JSONCodec) MessageType() int { return websocket.TextMessage }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec writes binary frames. Struct fields use their json tags so both
// codecs share one set of names on the wire.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string     { return CodecMsgpack }
func (MsgpackCodec) MessageType() int { return websocket.BinaryMessage }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// Transcode re-encodes a broadcast payload written with one codec for a
// subscriber that reads another.
func Transcode(from, to Codec, payload Raw) (Raw, error) {
	if len(payload) == 0 || from.Name() == to.Name() {
		return payload, nil
	}

	var p Payload
	if err := from.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", from.Name(), err)
	}
	out, err := to.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", to.Name(), err)
	}
	return out, nil
}

// EncodePayload encodes p as a frame payload with codec.
func EncodePayload(codec Codec, p Payload) (Raw, error) {
	data, err := codec.Marshal(&p)
	if err != nil {
		return nil, err
	}
	return Raw(data), nil
}

// DecodePayload decodes a frame payload. An empty payload yields the zero Payload.
func DecodePayload(codec Codec, raw Raw) (Payload, error) {
	var p Payload
	if len(raw) == 0 {
		return p, nil
	}
	err := codec.Unmarshal(raw, &p)
	return p, err
}
