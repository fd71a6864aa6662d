package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ActionType is the tag of an Action.
type ActionType string

const (
	ActionSyncInput  ActionType = "syncInput"
	ActionCallMethod ActionType = "callMethod"
	ActionDbInput    ActionType = "dbInput"
)

// Action errors.
var (
	ErrUnknownActionType = errors.New("protocol: unknown action type")
	ErrEmptyAction       = errors.New("protocol: action has no payload")
)

// Payload is implemented by the three action payload types.
type Payload interface {
	actionType() ActionType
}

// SyncInput assigns a value to a component field.
type SyncInput struct {
	Name  string `json:"name" msgpack:"name"`
	Value any    `json:"value" msgpack:"value"`
}

// CallMethod invokes a component method.
type CallMethod struct {
	Name string `json:"name" msgpack:"name"`
	Args []any  `json:"args,omitempty" msgpack:"args,omitempty"`
	Key  string `json:"key,omitempty" msgpack:"key,omitempty"`
}

// DbInput updates fields of a database record bound to a component.
type DbInput struct {
	Model  string         `json:"model,omitempty" msgpack:"model,omitempty"`
	DB     string         `json:"db" msgpack:"db"`
	PK     string         `json:"pk" msgpack:"pk"`
	Fields map[string]any `json:"fields" msgpack:"fields"`
}

func (*SyncInput) actionType() ActionType  { return ActionSyncInput }
func (*CallMethod) actionType() ActionType { return ActionCallMethod }
func (*DbInput) actionType() ActionType    { return ActionDbInput }

// Action is one queued semantic action.
type Action struct {
	Payload Payload
}

// NewSyncInput returns a syncInput action.
func NewSyncInput(name string, value any) Action {
	return Action{Payload: &SyncInput{Name: name, Value: value}}
}

// NewCallMethod returns a callMethod action.
func NewCallMethod(name string, args []any, key string) Action {
	return Action{Payload: &CallMethod{Name: name, Args: args, Key: key}}
}

// NewDbInput returns a dbInput action.
func NewDbInput(model, db, pk string, fields map[string]any) Action {
	return Action{Payload: &DbInput{Model: model, DB: db, PK: pk, Fields: fields}}
}

// Type returns the action tag, or "" for an empty action.
func (a Action) Type() ActionType {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.actionType()
}

// SyncInput returns the payload if the action is a syncInput.
func (a Action) SyncInput() (*SyncInput, bool) {
	p, ok := a.Payload.(*SyncInput)
	return p, ok
}

// CallMethod returns the payload if the action is a callMethod.
func (a Action) CallMethod() (*CallMethod, bool) {
	p, ok := a.Payload.(*CallMethod)
	return p, ok
}

// DbInput returns the payload if the action is a dbInput.
func (a Action) DbInput() (*DbInput, bool) {
	p, ok := a.Payload.(*DbInput)
	return p, ok
}

// String returns a short description for logs.
func (a Action) String() string {
	switch p := a.Payload.(type) {
	case *SyncInput:
		return fmt.Sprintf("syncInput(%s)", p.Name)
	case *CallMethod:
		return fmt.Sprintf("callMethod(%s)", p.Name)
	case *DbInput:
		return fmt.Sprintf("dbInput(%s/%s)", p.DB, p.PK)
	default:
		return "empty"
	}
}

func newPayload(t ActionType) (Payload, error) {
	switch t {
	case ActionSyncInput:
		return &SyncInput{}, nil
	case ActionCallMethod:
		return &CallMethod{}, nil
	case ActionDbInput:
		return &DbInput{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, t)
	}
}

type jsonAction struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	if a.Payload == nil {
		return nil, ErrEmptyAction
	}
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonAction{Type: a.Type(), Payload: payload})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(b []byte) error {
	var w jsonAction
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p, err := newPayload(w.Type)
	if err != nil {
		return err
	}
	if len(w.Payload) > 0 {
		if err := json.Unmarshal(w.Payload, p); err != nil {
			return fmt.Errorf("protocol: decode %s payload: %w", w.Type, err)
		}
	}
	a.Payload = p
	return nil
}

type msgpackAction struct {
	Type    ActionType         `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

var (
	_ msgpack.CustomEncoder = Action{}
	_ msgpack.CustomDecoder = (*Action)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (a Action) EncodeMsgpack(enc *msgpack.Encoder) error {
	if a.Payload == nil {
		return ErrEmptyAction
	}
	payload, err := msgpack.Marshal(a.Payload)
	if err != nil {
		return err
	}
	return enc.Encode(msgpackAction{Type: a.Type(), Payload: payload})
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (a *Action) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w msgpackAction
	if err := dec.Decode(&w); err != nil {
		return err
	}
	p, err := newPayload(w.Type)
	if err != nil {
		return err
	}
	if len(w.Payload) > 0 {
		if err := msgpack.Unmarshal(w.Payload, p); err != nil {
			return fmt.Errorf("protocol: decode %s payload: %w", w.Type, err)
		}
	}
	a.Payload = p
	return nil
}
