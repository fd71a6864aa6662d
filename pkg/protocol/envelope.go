package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope errors.
var (
	ErrMissingID        = errors.New("protocol: response has no component id")
	ErrMaxDepthExceeded = errors.New("protocol: data nesting too deep")
	ErrMessageTooLarge  = errors.New("protocol: message too large")
)

// Request is the outbound message of one dispatch.
type Request struct {
	ID            string         `json:"id" msgpack:"id"`
	ComponentName string         `json:"componentName" msgpack:"componentName"`
	Data          map[string]any `json:"data" msgpack:"data"`
	ActionQueue   []Action       `json:"actionQueue" msgpack:"actionQueue"`
}

// Response is the inbound message of one round trip.
type Response struct {
	ID    string         `json:"id" msgpack:"id"`
	Data  map[string]any `json:"data,omitempty" msgpack:"data,omitempty"`
	DOM   string         `json:"dom,omitempty" msgpack:"dom,omitempty"`
	Error string         `json:"error,omitempty" msgpack:"error,omitempty"`
}

// IsError reports whether the response is error-flagged.
func (r *Response) IsError() bool {
	return r.Error != ""
}

// Validate checks a decoded response against limits. An error-flagged
// response may omit the id.
func (r *Response) Validate(l Limits) error {
	if r.ID == "" && !r.IsError() {
		return ErrMissingID
	}
	if l.MaxDataDepth > 0 {
		if err := checkDepth(r.Data, 1, l.MaxDataDepth); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON accepts "data" either as an object or as a string holding
// a JSON object.
func (r *Response) UnmarshalJSON(b []byte) error {
	var w struct {
		ID    string          `json:"id"`
		Data  json.RawMessage `json:"data"`
		DOM   string          `json:"dom"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	r.ID, r.DOM = w.ID, w.DOM
	r.Data = nil
	r.Error = ""

	if len(w.Data) > 0 && string(w.Data) != "null" {
		raw := []byte(w.Data)
		var s string
		if json.Unmarshal(raw, &s) == nil {
			raw = []byte(s)
		}
		if err := json.Unmarshal(raw, &r.Data); err != nil {
			return fmt.Errorf("protocol: decode response data: %w", err)
		}
	}

	if len(w.Error) > 0 && string(w.Error) != "null" && string(w.Error) != "false" {
		var s string
		if json.Unmarshal(w.Error, &s) == nil {
			r.Error = s
		} else {
			r.Error = string(w.Error)
		}
	}
	return nil
}

// MergeData shallow-merges src into dst, allocating dst if needed.
// Applying the same src twice yields the same result as applying it once.
func MergeData(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// CloneData returns a shallow copy of data.
func CloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
