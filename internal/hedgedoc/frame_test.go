package hedgedoc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	name, args, err := DecodeEvent(`42["doc",{"str":"hello","revision":5}]`)
	require.NoError(t, err)
	assert.Equal(t, EventDoc, name)
	require.Len(t, args, 1)
	assert.Equal(t, "hello", args[0].Get("str").String())

	name, args, err = DecodeEvent(`42["join"]`)
	require.NoError(t, err)
	assert.Equal(t, EventJoin, name)
	assert.Empty(t, args)
}

func TestDecodeEvent_NonEventFrames(t *testing.T) {
	for _, raw := range []string{"3", "2", "3probe", "40", "41", `0{"sid":"x"}`, ""} {
		name, args, err := DecodeEvent(raw)
		assert.NoError(t, err, raw)
		assert.Empty(t, name, raw)
		assert.Nil(t, args, raw)
	}
}

func TestDecodeEvent_Malformed(t *testing.T) {
	for raw, reason := range map[string]string{
		`42{oops`:        "invalid json",
		`42{"a":1}`:      "payload is not an array",
		`42[]`:           "missing event name",
		`42[5,"x"]`:      "missing event name",
		`42["doc",{"a":`: "invalid json",
	} {
		_, _, err := DecodeEvent(raw)
		var de *DecodeError
		require.True(t, errors.As(err, &de), raw)
		assert.Equal(t, reason, de.Reason, raw)
		assert.Equal(t, raw, de.Frame)
	}
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent(EventJoin, "note-1")
	require.NoError(t, err)
	assert.Equal(t, `42["join","note-1"]`, frame)

	frame, err = EncodeEvent(EventOperation, 2, []Component{Retain(1), Insert("<a>&")}, Selection{Ranges: []Range{{Anchor: 5, Head: 5}}})
	require.NoError(t, err)
	assert.Equal(t, `42["operation",2,[1,"<a>&"],{"ranges":[{"anchor":5,"head":5}]}]`, frame)

	_, err = EncodeEvent("bad", make(chan int))
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame, err := EncodeEvent(EventError, "boom", map[string]int{"code": 3})
	require.NoError(t, err)
	name, args, err := DecodeEvent(frame)
	require.NoError(t, err)
	assert.Equal(t, EventError, name)
	assert.Equal(t, `boom,{"code":3}`, errorMessage(args))
}

func TestParseOpen(t *testing.T) {
	open, err := parseOpen(`0{"sid":"abc","upgrades":[],"pingInterval":25000,"pingTimeout":60000}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", open.SID)
	assert.Equal(t, 25*time.Second, open.PingInterval)
	assert.Equal(t, time.Minute, open.PingTimeout)

	open, err = parseOpen(`0{"sid":"abc"}`)
	require.NoError(t, err)
	assert.Zero(t, open.PingInterval)

	_, err = parseOpen(`0{broken`)
	assert.Error(t, err)
}

func TestParseSnapshot(t *testing.T) {
	_, args, err := DecodeEvent(`42["doc",{"str":"hi","revision":7,"force":false}]`)
	require.NoError(t, err)
	snap, err := ParseSnapshot(args)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Text: "hi", Revision: 7}, snap)

	_, err = ParseSnapshot(nil)
	assert.Error(t, err)

	_, args, _ = DecodeEvent(`42["doc","nope"]`)
	_, err = ParseSnapshot(args)
	assert.Error(t, err)

	_, args, _ = DecodeEvent(`42["doc",{"str":1,"revision":"x"}]`)
	_, err = ParseSnapshot(args)
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "unknown error", errorMessage(nil))
	_, args, _ := DecodeEvent(`42["error","forbidden"]`)
	assert.Equal(t, "forbidden", errorMessage(args))
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "handshaking", StateHandshaking.String())
	assert.Equal(t, "joined", StateJoined.String())
	assert.Equal(t, "operationSent", StateOperationSent.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}

func TestErrors(t *testing.T) {
	te := &TimeoutError{NoteID: "n", State: StateJoined}
	assert.ErrorIs(t, te, ErrTimeout)
	assert.Contains(t, te.Error(), "state joined")

	cause := errors.New("refused")
	ce := &ConnectionError{Op: "dial", Err: cause}
	assert.ErrorIs(t, ce, cause)
	assert.Equal(t, "websocket dial: refused", ce.Error())

	ae := &AuthError{URL: "https://h", StatusCode: 502, Status: "502 Bad Gateway"}
	assert.Equal(t, "failed to fetch session from https://h: 502 Bad Gateway", ae.Error())

	de := &DecodeError{Frame: "42" + string(make([]byte, 100)), Reason: "x"}
	assert.Contains(t, de.Error(), "...")
}
