package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes requests and decodes responses.
type Codec interface {
	// Name is the configuration name of the codec.
	Name() string

	// Binary reports whether encoded messages travel in binary frames.
	Binary() bool

	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Codec names.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// JSONCodec encodes messages as JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string                       { return CodecJSON }
func (JSONCodec) Binary() bool                       { return false }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackCodec encodes messages as MessagePack using JSON field names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }
func (MsgpackCodec) Binary() bool { return true }

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

// CodecByName returns the codec registered under name. An empty name selects
// JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown codec %q", name)
	}
}

// EncodeRequest encodes req with c.
func EncodeRequest(c Codec, req *Request) ([]byte, error) {
	return c.Marshal(req)
}

// DecodeResponse decodes and validates one response.
func DecodeResponse(c Codec, data []byte, l Limits) (*Response, error) {
	if l.MaxMessageSize > 0 && len(data) > l.MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	var resp Response
	if err := c.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("protocol: decode response: %w", err)
	}
	if err := resp.Validate(l); err != nil {
		return nil, err
	}
	return &resp, nil
}
