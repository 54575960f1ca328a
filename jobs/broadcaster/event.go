package broadcaster

import "encoding/json"

const eventVersion = 1

const (
	EventNotional = "notional"
	EventSnapshot = "snapshot"
)

// Event is the JSON body of one published session result.
type Event struct {
	V        int    `json:"v"`
	Type     string `json:"type"`
	Session  string `json:"session"`
	Seq      uint64 `json:"seq"`
	Command  string `json:"command"`
	Notional uint64 `json:"notional,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
}

func NotionalEvent(session string, seq uint64, command string, notional uint64) Event {
	return Event{V: eventVersion, Type: EventNotional, Session: session, Seq: seq, Command: command, Notional: notional}
}

func SnapshotEvent(session string, seq uint64, snapshot string) Event {
	return Event{V: eventVersion, Type: EventSnapshot, Session: session, Seq: seq, Command: "END", Snapshot: snapshot}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEvent(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
