package hedgedoc

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// fakeHedgeDoc is an in-process stand-in for the HedgeDoc realtime server
type fakeHedgeDoc struct {
	t   *testing.T
	srv *httptest.Server

	pingInterval int
	docs         []string      // doc payloads sent after join
	docDelay     time.Duration // wait before sending docs
	onJoin       []string      // raw frames sent after join, before docs
	closeOnJoin  bool
	setCookie    []string

	mu       sync.Mutex
	frames   []string
	header   http.Header
	query    string
	rootHits int
	upgrader websocket.Upgrader
}

func newFakeHedgeDoc(t *testing.T) *fakeHedgeDoc {
	f := &fakeHedgeDoc{
		t:            t,
		pingInterval: 25000,
		setCookie:    []string{"connect.sid=s%3Afake-session.sig; Path=/; HttpOnly"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleRoot)
	mux.HandleFunc("/socket.io/", f.handleSocket)
	f.srv = httptest.NewUnstartedServer(mux)
	return f
}

func (f *fakeHedgeDoc) start() *fakeHedgeDoc {
	f.srv.Start()
	f.t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHedgeDoc) host() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

func (f *fakeHedgeDoc) handleRoot(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.rootHits++
	f.mu.Unlock()
	for _, c := range f.setCookie {
		w.Header().Add("Set-Cookie", c)
	}
	_, _ = w.Write([]byte("<html></html>"))
}

func (f *fakeHedgeDoc) handleSocket(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.header = r.Header.Clone()
	f.query = r.URL.RawQuery
	f.mu.Unlock()

	ws, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	var writeMu sync.Mutex
	write := func(frame string) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(frame))
	}

	write(`0{"sid":"fake-sid","upgrades":[],"pingInterval":` + strconv.Itoa(f.pingInterval) + `,"pingTimeout":60000}`)
	write(PacketConnect)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		frame := string(data)
		f.mu.Lock()
		f.frames = append(f.frames, frame)
		f.mu.Unlock()

		switch {
		case frame == PacketPing:
			write(PacketPong)
		case strings.HasPrefix(frame, PacketEvent):
			name, _, _ := DecodeEvent(frame)
			if name != EventJoin {
				continue
			}
			if f.closeOnJoin {
				return
			}
			for _, raw := range f.onJoin {
				write(raw)
			}
			go func() {
				time.Sleep(f.docDelay)
				for _, doc := range f.docs {
					write(`42["doc",` + doc + `]`)
				}
			}()
		}
	}
}

func (f *fakeHedgeDoc) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

func (f *fakeHedgeDoc) receivedEvents(name string) []string {
	var out []string
	for _, frame := range f.received() {
		if n, _, err := DecodeEvent(frame); err == nil && n == name {
			out = append(out, frame)
		}
	}
	return out
}

func (f *fakeHedgeDoc) upgradeHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.header
}

func (f *fakeHedgeDoc) upgradeQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

func opArgs(frame string) []gjson.Result {
	_, args, _ := DecodeEvent(frame)
	return args
}
