package assign

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
	"github.com/roach88/cardbook/internal/tracker"
)

// Service grants cards and announces completions.
//
// Thread-safety: AssignCard and Subscribe are safe for concurrent use.
type Service struct {
	index     *catalog.Index
	tracker   *tracker.Tracker
	publisher *event.Publisher
	albumID   catalog.AlbumID

	logger  *slog.Logger
	metrics *Metrics
	clock   event.Sequencer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records assignment outcomes, published events and latency.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock sets the sequencer that stamps Event.Seq.
// Tests use testutil.DeterministicClock for repeatable traces.
func WithClock(c event.Sequencer) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// New creates a Service over ix with an empty tracker and no subscribers.
func New(ix *catalog.Index, opts ...Option) *Service {
	s := &Service{
		index:  ix,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	album := ix.Album()
	s.albumID = album.ID
	s.tracker = tracker.New(album)
	s.publisher = event.NewPublisher(s.clock)
	return s
}

// Subscribe registers h for every event published after this call returns.
func (s *Service) Subscribe(h event.Handler) {
	s.publisher.Subscribe(h)
}

// AssignCard records that userID now owns cardID.
//
// An unknown card returns an error wrapping *catalog.UnknownCardError and
// leaves all state untouched. Assigning an owned card again is a no-op.
// Otherwise any completed sets are announced in completion order and then
// the album, each exactly once per user.
func (s *Service) AssignCard(userID int64, cardID catalog.CardID) error {
	start := time.Now()
	defer s.observe(start)

	set, err := s.index.FindSetByCard(cardID)
	if err != nil {
		s.logger.Warn("assign unknown card", "user", userID, "card", int64(cardID))
		s.count(ResultUnknownCard)
		return fmt.Errorf("assign card %d to user %d: %w", cardID, userID, err)
	}

	res := s.tracker.AssignCard(userID, cardID, set)
	if res.Duplicate {
		s.count(ResultDuplicate)
	} else {
		s.count(ResultRecorded)
	}

	// The tracker has released the user lock; handlers may re-enter.
	for _, setID := range res.Sets {
		s.logger.Debug("set finished", "user", userID, "set", int64(setID))
		s.publish(event.SetFinished(userID, s.albumID, setID))
	}
	if res.Album {
		s.logger.Debug("album finished", "user", userID, "album", int64(s.albumID))
		s.publish(event.AlbumFinished(userID, s.albumID))
	}
	return nil
}

// Tracker exposes the underlying tracker for read-only inspection.
func (s *Service) Tracker() *tracker.Tracker {
	return s.tracker
}

// Index returns the catalog index the service resolves cards with.
func (s *Service) Index() *catalog.Index {
	return s.index
}

func (s *Service) publish(e event.Event) {
	s.publisher.Publish(e)
	if s.metrics != nil {
		s.metrics.Events.WithLabelValues(e.Kind.String()).Inc()
	}
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.Assignments.WithLabelValues(result).Inc()
	}
}

func (s *Service) observe(start time.Time) {
	if s.metrics != nil {
		s.metrics.Duration.Observe(time.Since(start).Seconds())
	}
}
