package notes

import (
	"context"
	"errors"
	"time"

	"github.com/amoylab/contentd/internal/events"
	"github.com/amoylab/contentd/internal/hedgedoc"
	"github.com/amoylab/contentd/internal/notelock"
	"github.com/amoylab/contentd/pkg/metrics"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Pusher applies one scripted edit to a note
type Pusher interface {
	Apply(ctx context.Context, req hedgedoc.ApplyRequest) error
}

var _ Pusher = (*hedgedoc.Client)(nil)

// Result is the outcome of a push as reported to callers
type Result struct {
	Success bool   `json:"success"`
	Slug    string `json:"slug"`
	Append  bool   `json:"append"`
	Error   string `json:"error,omitempty"`
}

// Service pushes content into notes one push per note at a time
type Service struct {
	logger    *zap.Logger
	pusher    Pusher
	locker    notelock.Locker
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates a Service. publisher and m may be nil.
func NewService(logger *zap.Logger, pusher Pusher, locker notelock.Locker, publisher events.Publisher, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		logger:    logger.Named("notes"),
		pusher:    pusher,
		locker:    locker,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Push writes content into the note identified by slug. Failures are
// reported in the Result and never returned as an error.
func (s *Service) Push(ctx context.Context, slug, content string, appendMode bool) Result {
	mode := hedgedoc.ModeFromAppend(appendMode)
	res := Result{Slug: slug, Append: appendMode}
	start := s.now()
	if s.metrics != nil {
		s.metrics.PushStart()
	}

	err := s.push(ctx, slug, content, mode)
	outcome := classify(err)
	if s.metrics != nil {
		s.metrics.PushDone(string(mode), outcome, start)
	}

	if err != nil {
		res.Error = err.Error()
		s.logger.Warn("push failed",
			zap.String("slug", slug),
			zap.String("mode", string(mode)),
			zap.String("result", outcome),
			zap.Error(err),
		)
		if errors.Is(err, notelock.ErrBusy) {
			return res
		}
	} else {
		res.Success = true
		s.logger.Info("push succeeded", zap.String("slug", slug), zap.String("mode", string(mode)))
	}

	s.publish(events.NotePushed{
		NoteID:    slug,
		Mode:      string(mode),
		Success:   res.Success,
		Error:     res.Error,
		Bytes:     len(content),
		Duration:  s.now().Sub(start).Seconds(),
		Timestamp: s.now().UTC(),
	})
	return res
}

func (s *Service) push(ctx context.Context, slug, content string, mode hedgedoc.Mode) error {
	release, err := s.locker.Acquire(ctx, slug)
	if err != nil {
		return err
	}
	defer release()

	return s.pusher.Apply(ctx, hedgedoc.ApplyRequest{
		NoteID:  slug,
		Content: content,
		Mode:    mode,
	})
}

func (s *Service) publish(ev events.NotePushed) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("failed to publish push event",
			zap.String("publisher", s.publisher.Name()),
			zap.String("slug", ev.NoteID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.EventPublishFailed(s.publisher.Name())
		}
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, notelock.ErrBusy):
		return metrics.ResultBusy
	case errors.Is(err, hedgedoc.ErrTimeout):
		return metrics.ResultTimeout
	case errors.Is(err, hedgedoc.ErrServerRejected):
		return metrics.ResultRejected
	default:
		return metrics.ResultFailure
	}
}
