package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"hestia/fetcher"
	"hestia/models"
	"hestia/notifier"
	"hestia/parser"
)

type storedHome struct {
	listing models.Listing
	added   time.Time
}

type fakeStore struct {
	mu          sync.Mutex
	meta        models.Meta
	sources     []models.Source
	homes       []storedHome
	subscribers []models.Subscriber
	disabled    []int64
	jobRuns     map[string]time.Time
	failAddress string
}

func (f *fakeStore) GetMeta(ctx context.Context) (models.Meta, error) {
	return f.meta, nil
}

func (f *fakeStore) EnabledSources(ctx context.Context) ([]models.Source, error) {
	return f.sources, nil
}

func (f *fakeStore) RecentListingKeys(ctx context.Context, source string, since time.Time) (map[models.ListingKey]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make(map[models.ListingKey]struct{})
	for _, h := range f.homes {
		if h.listing.Source == source && !h.added.Before(since) {
			keys[h.listing.Key()] = struct{}{}
		}
	}
	return keys, nil
}

func (f *fakeStore) AddListing(ctx context.Context, l models.Listing, added time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.Address == f.failAddress {
		return errors.New("insert failed: connection refused")
	}
	f.homes = append(f.homes, storedHome{listing: l, added: added})
	return nil
}

func (f *fakeStore) ActiveSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []models.Subscriber
	for _, sub := range f.subscribers {
		if sub.Enabled {
			active = append(active, sub)
		}
	}
	return active, nil
}

func (f *fakeStore) SubscribersAddedBetween(ctx context.Context, from, to time.Time) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	for _, sub := range f.subscribers {
		if sub.Enabled && !sub.DateAdded.Before(from) && sub.DateAdded.Before(to) {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (f *fakeStore) DisableSubscriber(ctx context.Context, telegramID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = append(f.disabled, telegramID)
	for i := range f.subscribers {
		if f.subscribers[i].TelegramID == telegramID {
			f.subscribers[i].Enabled = false
		}
	}
	return nil
}

func (f *fakeStore) ClaimJobRun(ctx context.Context, name string, windowStart, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobRuns == nil {
		f.jobRuns = make(map[string]time.Time)
	}
	if last, ok := f.jobRuns[name]; ok && !last.Before(windowStart) {
		return false, nil
	}
	f.jobRuns[name] = now
	return true, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, src models.Source) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, src.Agency)
	if err, ok := f.errs[src.Agency]; ok {
		return nil, err
	}
	return []byte("{}"), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type sent struct {
	chatID int64
	text   string
	opts   notifier.SendOptions
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sent
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, text string, opts notifier.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{chatID: chatID, text: text, opts: opts})
	return nil
}

func (f *fakeSender) to(chatID int64) []sent {
	var out []sent
	for _, m := range f.messages {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

const ownerChat = 999

// quietTime is a Monday noon, outside every side job window
var quietTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func fixed(listings ...models.Listing) parser.Adapter {
	return parser.AdapterFunc(func(body []byte) ([]models.Listing, error) {
		out := make([]models.Listing, len(listings))
		copy(out, listings)
		return out, nil
	})
}

func home(address, city string, price int) models.Listing {
	return models.Listing{Address: address, City: city, URL: "https://example.nl/" + strings.ReplaceAll(address, " ", "-"), Price: price, SQM: models.UnknownFloorArea}
}

func subscriberFor(id int64, level int, sources ...string) models.Subscriber {
	return models.Subscriber{
		TelegramID: id,
		Enabled:    true,
		UserLevel:  level,
		Filter: models.SubscriberFilter{
			MaxPrice: 3000,
			Cities:   []string{"amsterdam", "leiden", "utrecht"},
			Sources:  sources,
		},
	}
}

type harness struct {
	store     *fakeStore
	fetcher   *fakeFetcher
	sender    *fakeSender
	registry  *parser.Registry
	scheduler *Scheduler
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	h := &harness{
		store:    &fakeStore{meta: models.Meta{DonationLinkUpdated: now}},
		fetcher:  &fakeFetcher{errs: map[string]error{}},
		sender:   &fakeSender{},
		registry: parser.NewRegistry(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := notifier.New(h.sender, h.store, 0, logger)
	h.scheduler = NewScheduler(h.store, h.fetcher, h.registry, n, Options{OwnerChatID: ownerChat}, logger).
		WithClock(func() time.Time { return now })
	return h
}

func TestRunCycleIsolatesSourceFailures(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.sources = []models.Source{
		{ID: 1, Agency: "alpha", UserInfo: models.SourceInfo{Agency: "Alpha Wonen"}},
		{ID: 2, Agency: "beta"},
		{ID: 3, Agency: "gamma"},
	}
	h.store.subscribers = []models.Subscriber{subscriberFor(1, 0, "alpha", "beta", "gamma")}
	h.registry.Register("alpha", fixed(home("Kerkstraat 10", "Amsterdam", 1200)))
	h.registry.Register("beta", fixed(home("Breestraat 5", "Leiden", 1100)))
	h.registry.Register("gamma", fixed(home("Oudegracht 1", "Utrecht", 1300)))
	h.fetcher.errs["beta"] = &fetcher.StatusError{URL: "https://beta.nl", StatusCode: 503}

	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v, want nil for a transport failure", err)
	}

	got := h.sender.to(1)
	if len(got) != 2 {
		t.Fatalf("subscriber received %d messages, want 2", len(got))
	}
	if !strings.Contains(got[0].text, "Kerkstraat 10") || !strings.Contains(got[0].text, "[Alpha Wonen]") {
		t.Errorf("first message = %q, want alpha listing with display name", got[0].text)
	}
	if !strings.Contains(got[1].text, "Oudegracht 1") {
		t.Errorf("second message = %q, want gamma listing", got[1].text)
	}

	owner := h.sender.to(ownerChat)
	if len(owner) != 1 || !strings.HasPrefix(owner[0].text, "[beta (2)] ") || !strings.Contains(owner[0].text, "503") {
		t.Errorf("owner messages = %+v, want one report for beta", owner)
	}
	if len(h.store.homes) != 2 {
		t.Errorf("stored %d homes, want 2", len(h.store.homes))
	}
}

func TestRunCycleBroadcastsOnlyNewListings(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.sources = []models.Source{{ID: 1, Agency: "alpha"}}
	h.store.subscribers = []models.Subscriber{subscriberFor(1, 0, "alpha")}

	seen := home("Kerkstraat 10", "Amsterdam", 1200)
	seen.Source = "alpha"
	expired := home("Oudegracht 1", "Utrecht", 1300)
	expired.Source = "alpha"
	h.store.homes = []storedHome{
		{listing: seen, added: quietTime.Add(-24 * time.Hour)},
		{listing: expired, added: quietTime.Add(-200 * 24 * time.Hour)},
	}

	reposted := home("KERKSTRAAT 10", "amsterdam", 1350)
	reposted.URL = "https://example.nl/new-url"
	h.registry.Register("alpha", fixed(reposted, home("Breestraat 5", "Leiden", 1100), home("Oudegracht 1", "Utrecht", 1300)))

	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	got := h.sender.to(1)
	if len(got) != 2 {
		t.Fatalf("subscriber received %d messages, want 2", len(got))
	}
	for _, m := range got {
		if strings.Contains(strings.ToLower(m.text), "kerkstraat") {
			t.Errorf("reposted listing was broadcast again: %q", m.text)
		}
	}

	// A second cycle finds everything in history.
	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle() error = %v", err)
	}
	if len(h.sender.to(1)) != 2 {
		t.Errorf("second cycle broadcast %d extra messages, want 0", len(h.sender.to(1))-2)
	}
}

func TestRunCycleConfigurationErrors(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.sources = []models.Source{
		{ID: 1, Agency: "unknown_agency"},
		{ID: 2, Agency: "alpha"},
		{ID: 3, Agency: "beta"},
	}
	h.store.subscribers = []models.Subscriber{subscriberFor(1, 0, "alpha")}
	h.registry.Register("alpha", fixed(home("Kerkstraat 10", "Amsterdam", 1200)))
	h.registry.Register("beta", fixed())
	h.fetcher.errs["beta"] = fmt.Errorf("%w: PATCH", fetcher.ErrUnknownMethod)

	err := h.scheduler.RunCycle(context.Background())
	if !errors.Is(err, parser.ErrUnknownSource) {
		t.Errorf("RunCycle() error = %v, want ErrUnknownSource", err)
	}
	if !errors.Is(err, fetcher.ErrUnknownMethod) {
		t.Errorf("RunCycle() error = %v, want ErrUnknownMethod", err)
	}
	if len(h.sender.to(1)) != 1 {
		t.Errorf("valid source was not processed after a configuration error")
	}
	for _, call := range h.fetcher.calls {
		if call == "unknown_agency" {
			t.Errorf("unknown source was fetched")
		}
	}
}

func TestRunCycleHalted(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.meta.ScraperHalted = true
	h.store.sources = []models.Source{{ID: 1, Agency: "alpha"}}
	h.registry.Register("alpha", fixed(home("Kerkstraat 10", "Amsterdam", 1200)))

	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(h.fetcher.calls) != 0 {
		t.Errorf("fetched %v while halted, want nothing", h.fetcher.calls)
	}
}

func TestRunCycleDevMode(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.meta.DevModeEnabled = true
	h.store.sources = []models.Source{{ID: 1, Agency: "alpha"}}
	h.store.subscribers = []models.Subscriber{subscriberFor(1, 0, "alpha"), subscriberFor(2, 2, "alpha")}
	h.registry.Register("alpha", fixed(home("Kerkstraat 10", "Amsterdam", 1200)))

	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(h.sender.to(1)) != 0 || len(h.sender.to(2)) != 1 {
		t.Errorf("dev mode delivered to %+v, want only the developer", h.sender.messages)
	}
}

func TestRunCycleFailedInsertStopsSource(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.failAddress = "Breestraat 5"
	h.store.sources = []models.Source{{ID: 7, Agency: "alpha"}}
	h.store.subscribers = []models.Subscriber{subscriberFor(1, 0, "alpha")}
	h.registry.Register("alpha", fixed(
		home("Kerkstraat 10", "Amsterdam", 1200),
		home("Breestraat 5", "Leiden", 1100),
		home("Oudegracht 1", "Utrecht", 1300),
	))

	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v, want storage errors isolated", err)
	}

	got := h.sender.to(1)
	if len(got) != 1 || !strings.Contains(got[0].text, "Kerkstraat 10") {
		t.Errorf("subscriber messages = %+v, want only the persisted listing", got)
	}
	if owner := h.sender.to(ownerChat); len(owner) != 1 || !strings.HasPrefix(owner[0].text, "[alpha (7)] ") {
		t.Errorf("owner messages = %+v, want insert failure report", owner)
	}
}

func TestRunCycleDoesNotReportConnectionResets(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.sources = []models.Source{{ID: 1, Agency: "alpha"}}
	h.registry.Register("alpha", fixed())
	h.fetcher.errs["alpha"] = errors.New("read tcp 10.0.0.1:443: read: connection reset by peer")

	if err := h.scheduler.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if owner := h.sender.to(ownerChat); len(owner) != 0 {
		t.Errorf("owner messages = %+v, want none for a connection reset", owner)
	}
}

func TestHealthJobFiresOncePerWindow(t *testing.T) {
	now := time.Date(2026, 10, 19, 19, 1, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.store.meta = models.Meta{DevModeEnabled: true, DonationLinkUpdated: now.Add(-14 * 24 * time.Hour)}

	for i := 0; i < 2; i++ {
		if err := h.scheduler.RunCycle(context.Background()); err != nil {
			t.Fatalf("RunCycle() error = %v", err)
		}
	}

	owner := h.sender.to(ownerChat)
	if len(owner) != 1 {
		t.Fatalf("owner received %d health summaries, want 1", len(owner))
	}
	if !strings.Contains(owner[0].text, "Dev mode is enabled") || !strings.Contains(owner[0].text, "Donation link expiring soon") {
		t.Errorf("health summary = %q", owner[0].text)
	}
}

func TestDefaultLoopIntervalHitsEveryWindow(t *testing.T) {
	h := newHarness(t, quietTime)
	interval := h.scheduler.opts.LoopInterval
	if interval != DefaultLoopInterval {
		t.Fatalf("LoopInterval = %s, want %s", interval, DefaultLoopInterval)
	}

	start := time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC)
	for offset := time.Duration(0); offset < interval; offset += 10 * time.Second {
		hit := false
		for tick := start.Add(-interval + offset); tick.Before(start.Add(jobWindow + interval)); tick = tick.Add(interval) {
			if _, ok := healthWindow(tick); ok {
				hit = true
				break
			}
		}
		if !hit {
			t.Errorf("ticks offset by %s never land in the health window", offset)
		}
	}
}

func TestThanksJob(t *testing.T) {
	friday := time.Date(2026, 10, 23, 18, 2, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	tests := []struct {
		name     string
		now      time.Time
		devMode  bool
		expected []int64
	}{
		{"inside window", friday, false, []int64{2}},
		{"dev mode", friday, true, nil},
		{"after window", friday.Add(3 * time.Minute), false, nil},
		{"wrong weekday", friday.Add(24 * time.Hour), false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.now)
			h.store.meta.DevModeEnabled = tt.devMode
			h.store.meta.DonationLink = "https://tikkie.me/pay/abc"
			recent := subscriberFor(1, 0)
			recent.DateAdded = friday.Add(-1 * week)
			due := subscriberFor(2, 0)
			due.DateAdded = friday.Add(-3*week - 24*time.Hour)
			old := subscriberFor(3, 0)
			old.DateAdded = friday.Add(-5 * week)
			h.store.subscribers = []models.Subscriber{recent, due, old}

			for i := 0; i < 2; i++ {
				if err := h.scheduler.RunCycle(context.Background()); err != nil {
					t.Fatalf("RunCycle() error = %v", err)
				}
			}

			var got []int64
			for _, m := range h.sender.messages {
				if m.chatID == ownerChat {
					continue
				}
				got = append(got, m.chatID)
				if !m.opts.MarkdownV2 || !m.opts.DisablePreview {
					t.Errorf("thanks message options = %+v, want MarkdownV2 without preview", m.opts)
				}
				if !strings.Contains(m.text, "https://tikkie.me/pay/abc") {
					t.Errorf("thanks message = %q, want donation link", m.text)
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.expected) {
				t.Errorf("thanks sent to %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHealthSummary(t *testing.T) {
	now := time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		meta     models.Meta
		contains []string
		empty    bool
	}{
		{"all good", models.Meta{DonationLinkUpdated: now.Add(-24 * time.Hour)}, nil, true},
		{"halted", models.Meta{ScraperHalted: true, DonationLinkUpdated: now}, []string{"Scraper is halted"}, false},
		{"expiring link", models.Meta{DonationLinkUpdated: now.Add(-13 * 24 * time.Hour)}, []string{"Donation link expiring soon, use /setdonate", "ago"}, false},
		{"missing link", models.Meta{}, []string{"Donation link is not set"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HealthSummary(tt.meta, now)
			if tt.empty && got != "" {
				t.Errorf("HealthSummary() = %q, want empty", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("HealthSummary() = %q, want it to contain %q", got, want)
				}
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, quietTime)
	h.store.sources = []models.Source{{ID: 1, Agency: "alpha"}}
	h.registry.Register("alpha", fixed())
	h.scheduler.opts.LoopInterval = time.Hour

	h.scheduler.Start()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if h.fetcher.callCount() > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	h.scheduler.Stop()

	if got := h.fetcher.callCount(); got != 1 {
		t.Errorf("fetched %d times, want exactly one immediate cycle", got)
	}
}
