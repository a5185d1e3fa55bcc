package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hestia/fetcher"
	"hestia/models"
	"hestia/notifier"
	"hestia/parser"

	"github.com/google/uuid"
)

// Store is the structured storage the scheduler reads sources, history,
// subscribers and operator state from
type Store interface {
	GetMeta(ctx context.Context) (models.Meta, error)
	EnabledSources(ctx context.Context) ([]models.Source, error)
	RecentListingKeys(ctx context.Context, source string, since time.Time) (map[models.ListingKey]struct{}, error)
	AddListing(ctx context.Context, l models.Listing, added time.Time) error
	ActiveSubscribers(ctx context.Context) ([]models.Subscriber, error)
	SubscribersAddedBetween(ctx context.Context, from, to time.Time) ([]models.Subscriber, error)
	DisableSubscriber(ctx context.Context, telegramID int64) error
	ClaimJobRun(ctx context.Context, name string, windowStart, now time.Time) (bool, error)
}

// Parser turns a fetched response into listings for a source id
type Parser interface {
	Lookup(id string) (parser.Adapter, error)
	Parse(id string, body []byte) ([]models.Listing, error)
}

// Exporter receives every batch of new listings, e.g. a spreadsheet
type Exporter interface {
	AppendListings(ctx context.Context, listings []models.Listing) error
}

// Options configures a Scheduler
type Options struct {
	OwnerChatID  int64
	History      time.Duration
	LoopInterval time.Duration
}

// Scheduler runs scrape cycles: side jobs, halt check and every enabled source
type Scheduler struct {
	store    Store
	fetcher  fetcher.Fetcher
	parser   Parser
	notifier *notifier.Notifier
	exporter Exporter
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(store Store, f fetcher.Fetcher, p Parser, n *notifier.Notifier, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.History <= 0 {
		opts.History = 180 * 24 * time.Hour
	}
	if opts.LoopInterval <= 0 {
		opts.LoopInterval = DefaultLoopInterval
	}
	if opts.LoopInterval > jobWindow {
		logger.Warn("scheduler: loop interval is longer than the side job window, health and thanks messages may be skipped",
			"interval", opts.LoopInterval, "window", jobWindow)
	}
	return &Scheduler{
		store:    store,
		fetcher:  f,
		parser:   p,
		notifier: n,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// WithExporter sets an exporter that receives every batch of new listings
func (s *Scheduler) WithExporter(e Exporter) *Scheduler {
	s.exporter = e
	return s
}

// WithClock replaces the wall clock, used by tests
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// RunCycle performs one complete scrape cycle. Failures of individual
// sources are logged and reported to the owner; only configuration errors
// (unknown source or fetch method) are returned, after all sources ran.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	log := s.logger.With("run_id", uuid.NewString())
	now := s.now().UTC()

	meta, err := s.store.GetMeta(ctx)
	if err != nil {
		log.Error("scheduler: failed to read meta, skipping cycle", "error", err)
		return nil
	}

	s.runSideJobs(ctx, log, meta, now)

	if meta.ScraperHalted {
		log.Warn("scheduler: scraper is halted")
		return nil
	}

	sources, err := s.store.EnabledSources(ctx)
	if err != nil {
		log.Error("scheduler: failed to load sources", "error", err)
		return nil
	}

	agencies := make(map[string]string, len(sources))
	for _, src := range sources {
		agencies[src.Agency] = src.DisplayName()
	}

	start := time.Now()
	var configErrs []error
	for _, src := range sources {
		if ctx.Err() != nil {
			log.Warn("scheduler: cycle interrupted", "error", ctx.Err())
			break
		}

		if err := s.processSource(ctx, log, src, meta, agencies, now); err != nil {
			if isConfigError(err) {
				configErrs = append(configErrs, fmt.Errorf("source %s (%d): %w", src.Agency, src.ID, err))
			}
			s.reportSourceError(ctx, log, src, err)
		}
	}

	log.Warn("scheduler: scrape finished", "duration", time.Since(start), "sources", len(sources))
	return errors.Join(configErrs...)
}

func isConfigError(err error) bool {
	return errors.Is(err, parser.ErrUnknownSource) || errors.Is(err, fetcher.ErrUnknownMethod)
}

// processSource runs fetch, parse, change detection and broadcast for one source
func (s *Scheduler) processSource(ctx context.Context, log *slog.Logger, src models.Source, meta models.Meta, agencies map[string]string, now time.Time) error {
	if _, err := s.parser.Lookup(src.Agency); err != nil {
		return err
	}

	body, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return err
	}

	known, err := s.store.RecentListingKeys(ctx, src.Agency, now.Add(-s.opts.History))
	if err != nil {
		return err
	}

	candidates, err := s.parser.Parse(src.Agency, body)
	if err != nil {
		return err
	}

	fresh, persistErr := s.persistNew(ctx, candidates, known, now)
	log.Info("scheduler: source scraped",
		"source", src.Agency,
		"candidates", len(candidates),
		"new", len(fresh))

	if len(fresh) == 0 {
		return persistErr
	}

	subscribers, err := s.store.ActiveSubscribers(ctx)
	if err != nil {
		return errors.Join(persistErr, fmt.Errorf("failed to load subscribers: %w", err))
	}
	if meta.DevModeEnabled {
		subscribers = developers(subscribers)
	}

	stats := s.notifier.Broadcast(ctx, fresh, subscribers, agencies)
	log.Info("scheduler: broadcast finished",
		"source", src.Agency,
		"sent", stats.Sent,
		"blocked", stats.Blocked,
		"failed", stats.Failed)

	if s.exporter != nil {
		if err := s.exporter.AppendListings(ctx, fresh); err != nil {
			log.Warn("scheduler: failed to export listings", "source", src.Agency, "error", err)
		}
	}

	return persistErr
}

// persistNew stores every candidate whose key is not known yet and returns
// the stored ones. It stops at the first failed insert so nothing that was
// not persisted gets broadcast.
func (s *Scheduler) persistNew(ctx context.Context, candidates []models.Listing, known map[models.ListingKey]struct{}, now time.Time) ([]models.Listing, error) {
	var fresh []models.Listing
	for _, l := range candidates {
		key := l.Key()
		if _, seen := known[key]; seen {
			continue
		}
		if err := s.store.AddListing(ctx, l, now); err != nil {
			return fresh, err
		}
		known[key] = struct{}{}
		fresh = append(fresh, l)
	}
	return fresh, nil
}

// developers keeps the subscribers receiving broadcasts while dev mode is on
func developers(subscribers []models.Subscriber) []models.Subscriber {
	var devs []models.Subscriber
	for _, sub := range subscribers {
		if sub.UserLevel > 1 {
			devs = append(devs, sub)
		}
	}
	return devs
}

// reportSourceError logs a source failure and forwards it to the owner chat
func (s *Scheduler) reportSourceError(ctx context.Context, log *slog.Logger, src models.Source, err error) {
	message := fmt.Sprintf("[%s (%d)] %v", src.Agency, src.ID, err)
	log.Error("scheduler: source failed", "source", src.Agency, "id", src.ID, "error", err)

	// Connection resets are logged but never reported to the owner.
	if strings.Contains(strings.ToLower(message), "connection reset by peer") {
		return
	}
	if s.opts.OwnerChatID == 0 {
		return
	}
	if err := s.notifier.SendText(ctx, s.opts.OwnerChatID, message, notifier.SendOptions{}); err != nil {
		log.Warn("scheduler: failed to report source error to owner", "error", err)
	}
}

// Start runs a cycle immediately and then on every loop interval until Stop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop stops the loop and waits for a running cycle to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler: stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.LoopInterval)
	defer ticker.Stop()

	for {
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Error("scheduler: configuration error", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
