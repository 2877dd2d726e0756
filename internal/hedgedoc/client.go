package hedgedoc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"github.com/amoylab/contentd/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Defaults for Options. InsertDelay and CloseGrace give the server time to
// apply the delete and to persist the note before the socket goes away.
const (
	DefaultScheme           = "https"
	DefaultDeadline         = 15 * time.Second
	DefaultInsertDelay      = 100 * time.Millisecond
	DefaultCloseGrace       = time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultUserAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultAcceptLanguage   = "en-GB,en-US;q=0.9,en;q=0.8"
)

// Options tunes a Client
type Options struct {
	// Server is the host[:port] used when a request does not name one
	Server string
	// Scheme is the HTTP scheme of the server; the socket uses the matching ws scheme
	Scheme           string
	Deadline         time.Duration
	InsertDelay      time.Duration
	CloseGrace       time.Duration
	HandshakeTimeout time.Duration
	UserAgent        string
	AcceptLanguage   string
	// HTTPClient is used for the session bootstrap request
	HTTPClient *http.Client
}

// OptionsFromConfig maps the hedgedoc config section onto Options
func OptionsFromConfig(cfg config.HedgeDocConfig) Options {
	return Options{
		Server:           cfg.Server,
		Scheme:           cfg.Scheme,
		Deadline:         cfg.Deadline,
		InsertDelay:      cfg.InsertDelay,
		CloseGrace:       cfg.CloseGrace,
		HandshakeTimeout: cfg.HandshakeTimeout,
		UserAgent:        cfg.UserAgent,
		AcceptLanguage:   cfg.AcceptLanguage,
	}
}

func (o *Options) applyDefaults() {
	if o.Scheme == "" {
		o.Scheme = DefaultScheme
	}
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	if o.InsertDelay < 0 {
		o.InsertDelay = DefaultInsertDelay
	}
	if o.CloseGrace < 0 {
		o.CloseGrace = DefaultCloseGrace
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.AcceptLanguage == "" {
		o.AcceptLanguage = DefaultAcceptLanguage
	}
}

// DefaultOptions returns Options with every default filled in
func DefaultOptions() Options {
	o := Options{InsertDelay: DefaultInsertDelay, CloseGrace: DefaultCloseGrace}
	o.applyDefaults()
	return o
}

// ApplyRequest describes one scripted mutation of a note
type ApplyRequest struct {
	// Server overrides Options.Server
	Server  string
	NoteID  string
	Content string
	Mode    Mode
	// Credentials skips the session bootstrap when set
	Credentials Credentials
}

// Client pushes content into HedgeDoc notes over the realtime socket
type Client struct {
	logger *zap.Logger
	opts   Options
	auth   *Authenticator
}

// NewClient creates a Client. Zero durations for InsertDelay and CloseGrace are
// kept as zero; negative values select the defaults.
func NewClient(logger *zap.Logger, opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		logger: logger.Named("hedgedoc"),
		opts:   opts,
		auth:   NewAuthenticator(logger, opts.Scheme, opts.HTTPClient),
	}
}

// Options returns the effective options
func (c *Client) Options() Options { return c.opts }

// Override replaces the whole note with content
func (c *Client) Override(ctx context.Context, noteID, content string) error {
	return c.Apply(ctx, ApplyRequest{NoteID: noteID, Content: content, Mode: ModeOverride})
}

// Append adds content at the end of the note
func (c *Client) Append(ctx context.Context, noteID, content string) error {
	return c.Apply(ctx, ApplyRequest{NoteID: noteID, Content: content, Mode: ModeAppend})
}

// outcome settles the result of one Apply call exactly once
type outcome struct {
	once sync.Once
	err  error
	done chan struct{}
}

func newOutcome() *outcome { return &outcome{done: make(chan struct{})} }

func (o *outcome) settle(err error) bool {
	settled := false
	o.once.Do(func() {
		o.err = err
		settled = true
		close(o.done)
	})
	return settled
}

// Apply joins the note, applies the mutation on the first snapshot and closes
// the connection. It blocks until the call succeeds or fails.
func (c *Client) Apply(ctx context.Context, req ApplyRequest) (err error) {
	if req.NoteID == "" {
		return ErrEmptyNoteID
	}
	if req.Mode == "" {
		req.Mode = ModeOverride
	}
	if req.Mode != ModeOverride && req.Mode != ModeAppend {
		return fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	server := req.Server
	if server == "" {
		server = c.opts.Server
	}

	scope := trace.Tracer("hedgedoc").Start(ctx, "hedgedoc.apply").WithAttrs(
		attribute.String("note.id", req.NoteID),
		attribute.String("note.mode", string(req.Mode)),
		attribute.String("hedgedoc.server", server),
	)
	defer func() {
		scope.Fail(err)
		scope.End()
	}()
	ctx = scope.Ctx

	log := c.logger.With(zap.String("note", req.NoteID), zap.String("mode", string(req.Mode)))
	deadline := time.Now().Add(c.opts.Deadline)

	creds := req.Credentials
	if creds == nil {
		creds, err = c.auth.Acquire(ctx, server)
		if err != nil {
			log.Error("failed to acquire session", zap.Error(err))
			return err
		}
	}

	conn, err := Dial(ctx, c.logger, server, req.NoteID, creds, DialOptions{
		Scheme:           wsScheme(c.opts.Scheme),
		Origin:           c.opts.Scheme + "://" + server,
		UserAgent:        c.opts.UserAgent,
		AcceptLanguage:   c.opts.AcceptLanguage,
		HandshakeTimeout: c.opts.HandshakeTimeout,
		Deadline:         deadline,
	})
	if err != nil {
		log.Error("failed to connect", zap.Error(err))
		return err
	}
	defer conn.Close()

	result := newOutcome()
	go c.pump(conn, req, result, log)

	select {
	case <-result.done:
	case <-ctx.Done():
		result.settle(ctx.Err())
	}
	_ = conn.Close()

	if result.err != nil {
		log.Warn("push failed", zap.Error(result.err))
		return result.err
	}
	log.Info("note updated")
	return nil
}

// pump dispatches connection events until the connection closes
func (c *Client) pump(conn *Conn, req ApplyRequest, result *outcome, log *zap.Logger) {
	planStarted := false
	for ev := range conn.Events() {
		switch ev.Name {
		case EventError:
			msg := errorMessage(ev.Args)
			log.Warn("server rejected request", zap.String("message", msg))
			result.settle(&ServerRejectedError{Message: msg})
			_ = conn.Close()
		case EventDoc:
			if !conn.ClaimOperation() {
				log.Debug("ignoring snapshot", zap.Bool("operation_claimed", true))
				continue
			}
			snap, err := ParseSnapshot(ev.Args)
			if err != nil {
				result.settle(&ConnectionError{Op: "snapshot", Err: err})
				_ = conn.Close()
				continue
			}
			plan, err := BuildPlan(snap, req.Mode, req.Content, c.opts.InsertDelay)
			if err != nil {
				result.settle(err)
				_ = conn.Close()
				continue
			}
			log.Debug("snapshot received",
				zap.Int("revision", snap.Revision),
				zap.Int("length", textLen(snap.Text)),
			)
			planStarted = true
			go c.run(conn, plan, result, log)
		default:
			log.Debug("event ignored", zap.String("event", ev.Name))
		}
	}

	if planStarted {
		return
	}
	err := conn.Err()
	if err == nil {
		err = &ConnectionError{Op: "read", Err: io.ErrUnexpectedEOF}
	}
	result.settle(err)
}

// run sends the plan steps, waits out the close grace period and settles success
func (c *Client) run(conn *Conn, plan Plan, result *outcome, log *zap.Logger) {
	for _, step := range plan.Steps {
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-conn.Done():
				result.settle(closedErr(conn))
				return
			}
		}
		if err := conn.Emit(step.Event, step.args()...); err != nil {
			result.settle(&ConnectionError{Op: "write", Err: err})
			_ = conn.Close()
			return
		}
	}
	conn.MarkOperationSent()
	log.Debug("operation sent", zap.Int("operations", len(plan.Operations())))

	select {
	case <-time.After(c.opts.CloseGrace):
	case <-conn.Done():
	}
	result.settle(nil)
	_ = conn.Close()
}

func closedErr(conn *Conn) error {
	if err := conn.Err(); err != nil {
		return err
	}
	return &ConnectionError{Op: "write", Err: io.ErrClosedPipe}
}
