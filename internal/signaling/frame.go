package signaling

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Op identifies what a frame asks the relay to do, or what the relay reports.
type Op string

const (
	OpSubscribe   Op = "subscribe"
	OpUnsubscribe Op = "unsubscribe"
	OpBroadcast   Op = "broadcast"
	OpStatus      Op = "status"
	OpError       Op = "error"
)

// Frame is the envelope exchanged with the relay over the websocket.
type Frame struct {
	Op      Op     `json:"op"`
	Topic   string `json:"topic"`
	Event   string `json:"event,omitempty"`
	Status  Status `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Payload Raw    `json:"payload,omitempty"`
}

// Raw holds a payload already encoded with the connection's codec. It is
// copied through untouched when the frame itself is encoded or decoded.
type Raw []byte

// MarshalJSON implements json.Marshaler.
func (r Raw) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Raw) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], data...)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (r Raw) EncodeMsgpack(enc *msgpack.Encoder) error {
	if len(r) == 0 {
		return enc.EncodeNil()
	}
	return enc.Encode(msgpack.RawMessage(r))
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (r *Raw) DecodeMsgpack(dec *msgpack.Decoder) error {
	msg, err := dec.DecodeRaw()
	if err != nil {
		return err
	}
	if len(msg) == 1 && msg[0] == 0xc0 {
		*r = nil
		return nil
	}
	*r = Raw(msg)
	return nil
}
