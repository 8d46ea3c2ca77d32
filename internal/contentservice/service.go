// Package contentservice is the collection store: it replaces collection
// files, reads and writes markdown posts and manages uploaded images inside
// the data directory.
package contentservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/inkpact/internal/checksum"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/storage"
)

// DefaultMaxImageBytes is the upload ceiling when none is configured.
const DefaultMaxImageBytes = 10 << 20

// TimeFormat is the timestamp layout of every response, UTC with milliseconds.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Recorder journals a completed write.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Notifier broadcasts a completed change to live clients.
type Notifier interface {
	PublishChange(eventType string, data any)
}

// Service coordinates storage, the activity journal and live notifications.
type Service struct {
	store         storage.Provider
	recorder      Recorder
	notifier      Notifier
	logger        *slog.Logger
	maxImageBytes int64
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder journals every write through r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithNotifier publishes every change through n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxImageBytes sets the upload ceiling.
func WithMaxImageBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a content service over store.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:         store,
		logger:        slog.Default(),
		maxImageBytes: DefaultMaxImageBytes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxImageBytes returns the upload ceiling.
func (s *Service) MaxImageBytes() int64 { return s.maxImageBytes }

// Bootstrap creates the directories the dashboard expects.
func (s *Service) Bootstrap(_ context.Context) error {
	dirs := []string{"blogs", thumbnailsDir}
	for _, c := range categories {
		dirs = append(dirs, thumbnailsDir+"/"+c)
	}
	for _, d := range dirs {
		if err := s.store.MkdirAll(d); err != nil {
			return err
		}
	}
	return nil
}

// Ready reports whether the data directory can be listed.
func (s *Service) Ready(_ context.Context) error {
	_, err := s.store.List("")
	return err
}

// record journals and broadcasts a finished write. Failures are logged only:
// the write itself already succeeded.
func (s *Service) record(ctx context.Context, e journal.Entry, content []byte, eventType string, data any) {
	if content != nil {
		e.Size = int64(len(content))
		e.Checksum = checksum.Sum(content)
	}
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, e); err != nil {
			s.logger.Warn("journal record failed",
				slog.String("target", e.Target),
				slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		s.notifier.PublishChange(eventType, data)
	}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(TimeFormat)
}
