package hedgedoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Engine.IO v3 / Socket.IO v2 packet prefixes
const (
	PacketOpen    = "0"
	PacketPing    = "2"
	PacketPong    = "3"
	PacketProbe   = "2probe"
	PacketConnect = "40"
	PacketEvent   = "42"
)

// Event names exchanged with the HedgeDoc realtime server
const (
	EventJoin           = "join"
	EventDoc            = "doc"
	EventError          = "error"
	EventOperation      = "operation"
	EventSelection      = "selection"
	EventCursorActivity = "cursor activity"
)

// Event is a decoded Socket.IO event frame
type Event struct {
	Name string
	Args []gjson.Result
}

// DecodeEvent splits an event frame into its name and positional arguments.
// Frames that are not events decode to an empty name, nil args and no error.
func DecodeEvent(raw string) (string, []gjson.Result, error) {
	if !strings.HasPrefix(raw, PacketEvent) {
		return "", nil, nil
	}
	body := raw[len(PacketEvent):]
	if !gjson.Valid(body) {
		return "", nil, &DecodeError{Frame: raw, Reason: "invalid json"}
	}
	payload := gjson.Parse(body)
	if !payload.IsArray() {
		return "", nil, &DecodeError{Frame: raw, Reason: "payload is not an array"}
	}
	items := payload.Array()
	if len(items) == 0 || items[0].Type != gjson.String {
		return "", nil, &DecodeError{Frame: raw, Reason: "missing event name"}
	}
	return items[0].String(), items[1:], nil
}

// EncodeEvent builds a `42[name,args...]` frame
func EncodeEvent(name string, args ...any) (string, error) {
	payload := make([]any, 0, len(args)+1)
	payload = append(payload, name)
	payload = append(payload, args...)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("failed to encode %q event: %w", name, err)
	}
	return PacketEvent + strings.TrimSuffix(buf.String(), "\n"), nil
}

// openPacket is the handshake configuration carried by an Engine.IO open packet
type openPacket struct {
	SID          string
	PingInterval time.Duration
	PingTimeout  time.Duration
}

func parseOpen(raw string) (openPacket, error) {
	body := strings.TrimPrefix(raw, PacketOpen)
	if !gjson.Valid(body) {
		return openPacket{}, fmt.Errorf("invalid open packet %q", truncate(raw, 64))
	}
	cfg := gjson.Parse(body)
	return openPacket{
		SID:          cfg.Get("sid").String(),
		PingInterval: time.Duration(cfg.Get("pingInterval").Int()) * time.Millisecond,
		PingTimeout:  time.Duration(cfg.Get("pingTimeout").Int()) * time.Millisecond,
	}, nil
}

// ParseSnapshot reads the first argument of a "doc" event
func ParseSnapshot(args []gjson.Result) (Snapshot, error) {
	if len(args) == 0 || !args[0].IsObject() {
		return Snapshot{}, fmt.Errorf("doc event without snapshot payload")
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(args[0].Raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// errorMessage renders the payload of an "error" event
func errorMessage(args []gjson.Result) string {
	if len(args) == 0 {
		return "unknown error"
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a.Type == gjson.String {
			parts = append(parts, a.String())
			continue
		}
		parts = append(parts, a.Raw)
	}
	return strings.Join(parts, ",")
}
