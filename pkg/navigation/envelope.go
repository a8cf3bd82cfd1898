package navigation

import (
	"encoding/json"
)

// Envelope is what gets written as native history state: the caller's data
// plus the id of the entry it belongs to.
type Envelope struct {
	Meta EnvelopeMeta `json:"waypoint"`
	Data any          `json:"data,omitempty"`
}

// EnvelopeMeta identifies the entry and the History instance that wrote it.
// Session differs across processes and page loads, so state left behind by an
// earlier run is never mistaken for a live entry.
type EnvelopeMeta struct {
	Session string `json:"session"`
	ID      int64  `json:"id"`
}

// DecodeEnvelope recognizes an Envelope in native state. Besides the Go value
// it accepts the decoded-JSON form a browser hands back and raw JSON bytes.
func DecodeEnvelope(state any) (Envelope, bool) {
	switch s := state.(type) {
	case Envelope:
		return s, s.Meta.Session != ""
	case *Envelope:
		if s == nil {
			return Envelope{}, false
		}
		return *s, s.Meta.Session != ""
	case map[string]any:
		return decodeEnvelopeMap(s)
	case json.RawMessage:
		return decodeEnvelopeJSON(s)
	case []byte:
		return decodeEnvelopeJSON(s)
	default:
		return Envelope{}, false
	}
}

func decodeEnvelopeMap(m map[string]any) (Envelope, bool) {
	meta, ok := m["waypoint"].(map[string]any)
	if !ok {
		return Envelope{}, false
	}
	session, ok := meta["session"].(string)
	if !ok || session == "" {
		return Envelope{}, false
	}

	var id int64
	switch v := meta["id"].(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return Envelope{}, false
		}
		id = n
	default:
		return Envelope{}, false
	}

	return Envelope{Meta: EnvelopeMeta{Session: session, ID: id}, Data: m["data"]}, true
}

func decodeEnvelopeJSON(raw []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false
	}
	return env, env.Meta.Session != ""
}

// unwrapState returns the caller data carried by native state, whether or not
// it is wrapped in an Envelope.
func unwrapState(state any) any {
	if env, ok := DecodeEnvelope(state); ok {
		return env.Data
	}
	return state
}
