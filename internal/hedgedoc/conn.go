package hedgedoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	eventBufferSize = 16
)

// DialOptions configures the websocket upgrade request
type DialOptions struct {
	// Scheme is ws or wss
	Scheme           string
	Origin           string
	UserAgent        string
	AcceptLanguage   string
	HandshakeTimeout time.Duration
	// Deadline bounds the whole connection until an operation is claimed.
	// Zero means no deadline.
	Deadline time.Time
	// Dialer overrides the default websocket dialer, mainly for tests
	Dialer *websocket.Dialer
}

// Conn is a Socket.IO connection joined to a single note
type Conn struct {
	logger *zap.Logger
	ws     *websocket.Conn
	noteID string

	writeMu sync.Mutex
	state   atomic.Int32

	deadline time.Time
	timer    atomic.Pointer[time.Timer]
	claimed  atomic.Bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// SocketURL builds the realtime endpoint for a note
func SocketURL(scheme, server, noteID string) string {
	return scheme + "://" + server + "/socket.io/?noteId=" + url.QueryEscape(noteID) + "&EIO=3&transport=websocket"
}

// Dial opens the websocket, sends the connect frame and starts reading.
// Decoded events are delivered on Events until the connection closes.
func Dial(ctx context.Context, logger *zap.Logger, server, noteID string, creds Credentials, opts DialOptions) (*Conn, error) {
	if noteID == "" {
		return nil, ErrEmptyNoteID
	}
	if opts.Scheme == "" {
		opts.Scheme = "wss"
	}
	if opts.Origin == "" {
		opts.Origin = httpScheme(opts.Scheme) + "://" + server
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  opts.HandshakeTimeout,
			EnableCompression: false,
		}
	}

	header := http.Header{}
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("Origin", opts.Origin)
	if opts.UserAgent != "" {
		header.Set("User-Agent", opts.UserAgent)
	}
	if opts.AcceptLanguage != "" {
		header.Set("Accept-Language", opts.AcceptLanguage)
	}
	if cookie := creds.Header(); cookie != "" {
		header.Set("Cookie", cookie)
	}

	dialCtx := ctx
	if !opts.Deadline.IsZero() {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithDeadline(ctx, opts.Deadline)
		defer cancel()
	}

	target := SocketURL(opts.Scheme, server, noteID)
	log := logger.Named("hedgedoc.conn").With(zap.String("note", noteID))
	log.Debug("dialing realtime endpoint", zap.String("url", target))

	ws, resp, err := dialer.DialContext(dialCtx, target, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		if !opts.Deadline.IsZero() && errors.Is(dialCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{NoteID: noteID, State: StateConnecting}
		}
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	c := &Conn{
		logger:   log,
		ws:       ws,
		noteID:   noteID,
		deadline: opts.Deadline,
		events:   make(chan Event, eventBufferSize),
		done:     make(chan struct{}),
	}
	c.setState(StateConnecting)

	if err := c.send(PacketConnect); err != nil {
		_ = ws.Close()
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	c.setState(StateHandshaking)

	if !c.deadline.IsZero() {
		c.timer.Store(time.AfterFunc(time.Until(c.deadline), c.expire))
	}
	go c.readLoop()
	return c, nil
}

// Events delivers decoded Socket.IO events. It is closed when the read loop exits.
func (c *Conn) Events() <-chan Event { return c.events }

// Done is closed once the connection has been closed
func (c *Conn) Done() <-chan struct{} { return c.done }

// State returns the current lifecycle state
func (c *Conn) State() ConnState { return ConnState(c.state.Load()) }

func (c *Conn) setState(s ConnState) { c.state.Store(int32(s)) }

// Err returns the error that terminated the connection, if any
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// ClaimOperation takes the single-use operation slot of this connection.
// Only the first caller gets true; once claimed the deadline no longer fires.
func (c *Conn) ClaimOperation() bool {
	if !c.claimed.CompareAndSwap(false, true) {
		return false
	}
	c.stopTimer()
	return true
}

// MarkOperationSent records that the edit has gone out
func (c *Conn) MarkOperationSent() {
	c.state.CompareAndSwap(int32(StateJoined), int32(StateOperationSent))
}

// Emit sends a `42` event frame
func (c *Conn) Emit(name string, args ...any) error {
	frame, err := EncodeEvent(name, args...)
	if err != nil {
		return err
	}
	c.logger.Debug("emit", zap.String("event", name), zap.String("frame", truncate(frame, 256)))
	return c.send(frame)
}

// Close sends a close frame and tears the socket down. Safe to call repeatedly.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		c.stopTimer()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
		c.setState(StateClosed)
		close(c.done)
		c.logger.Debug("connection closed")
	})
	return err
}

// stopTimer disarms the deadline. The timer may fire before Dial has stored it,
// in which case there is nothing to stop.
func (c *Conn) stopTimer() {
	if t := c.timer.Load(); t != nil {
		t.Stop()
	}
}

func (c *Conn) isOpen() bool { return c.State() < StateClosing }

func (c *Conn) fail(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
	_ = c.Close()
}

// expire fails the connection with a timeout unless an operation was already claimed
func (c *Conn) expire() {
	if !c.claimed.CompareAndSwap(false, true) {
		return
	}
	c.logger.Warn("deadline exceeded", zap.Stringer("state", c.State()))
	c.fail(&TimeoutError{NoteID: c.noteID, State: c.State()})
}

func (c *Conn) send(frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isOpen() {
				return
			}
			c.fail(&ConnectionError{Op: "read", Err: err})
			return
		}

		if !c.deadline.IsZero() && time.Now().After(c.deadline) {
			c.expire()
			if !c.isOpen() {
				return
			}
		}

		raw := string(data)
		switch {
		case strings.HasPrefix(raw, PacketConnect):
			c.logger.Debug("connect acknowledged")
		case strings.HasPrefix(raw, PacketOpen):
			if err := c.handleOpen(raw); err != nil {
				c.fail(err)
				return
			}
		default:
			name, args, err := DecodeEvent(raw)
			if err != nil {
				c.logger.Warn("dropping frame", zap.Error(err))
				continue
			}
			if name == "" {
				c.logger.Debug("ignoring non-event frame", zap.String("frame", truncate(raw, 64)))
				continue
			}
			select {
			case c.events <- Event{Name: name, Args: args}:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Conn) handleOpen(raw string) error {
	open, err := parseOpen(raw)
	if err != nil {
		return &ConnectionError{Op: "handshake", Err: err}
	}
	c.logger.Debug("engine.io open",
		zap.String("sid", open.SID),
		zap.Duration("ping_interval", open.PingInterval),
	)
	if err := c.send(PacketProbe); err != nil {
		return &ConnectionError{Op: "probe", Err: err}
	}
	if open.PingInterval > 0 {
		go c.keepalive(open.PingInterval)
	}
	if err := c.Emit(EventJoin, c.noteID); err != nil {
		return &ConnectionError{Op: "join", Err: err}
	}
	c.state.CompareAndSwap(int32(StateHandshaking), int32(StateJoined))
	return nil
}

func httpScheme(wsScheme string) string {
	if wsScheme == "ws" {
		return "http"
	}
	return "https"
}

func wsScheme(httpScheme string) string {
	if httpScheme == "http" {
		return "ws"
	}
	return "wss"
}
