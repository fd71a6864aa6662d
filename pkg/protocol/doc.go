// Package protocol defines the round-trip messages exchanged between a meld
// client and the process that renders its components.
//
// # Messages
//
// The client sends one Request per dispatch:
//
//	{
//	  "id": "c1",
//	  "componentName": "counter",
//	  "data": {"count": 1},
//	  "actionQueue": [
//	    {"type": "syncInput", "payload": {"name": "count", "value": "2"}},
//	    {"type": "callMethod", "payload": {"name": "increment"}}
//	  ]
//	}
//
// and receives one Response per round trip:
//
//	{"id": "c1", "data": {"count": 3}, "dom": "<div meld:id=\"c1\">3</div>"}
//
// A Response with a non-empty "error" carries no state.
//
// # Actions
//
// Action is a tagged variant. The tag selects the payload type:
//
//   - syncInput: SyncInput{name, value}
//   - callMethod: CallMethod{name, args, key}
//   - dbInput: DbInput{model, db, pk, fields}
//
// # Codecs
//
// JSONCodec is the default and travels in text frames. MsgpackCodec produces
// the same shapes in binary frames.
package protocol
