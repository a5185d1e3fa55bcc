package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"hestia/models"
	"hestia/notifier"

	"github.com/dustin/go-humanize"
)

const (
	healthJob = "health"
	thanksJob = "thanks"

	// jobWindow is how long after the full hour a side job may still fire.
	// A loop interval longer than this can step over a whole window.
	jobWindow = 4 * time.Minute

	// DefaultLoopInterval leaves every job window at least one tick
	DefaultLoopInterval = 3 * time.Minute

	// Tikkie links expire after 14 days
	donationLinkWarnAge = 13 * 24 * time.Hour
)

// healthWindow returns the start of today's health window (19:00 UTC) and
// whether now falls inside it
func healthWindow(now time.Time) (time.Time, bool) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 19, 0, 0, 0, time.UTC)
	return start, inWindow(now, start)
}

// thanksWindow returns the start of the weekly thanks window (Friday 18:00
// UTC) and whether now falls inside it
func thanksWindow(now time.Time) (time.Time, bool) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC)
	return start, now.Weekday() == time.Friday && inWindow(now, start)
}

func inWindow(now, start time.Time) bool {
	return !now.Before(start) && now.Before(start.Add(jobWindow))
}

// runSideJobs fires the wall-clock gated jobs. Each window fires at most
// once: the run is claimed in storage before anything is sent.
func (s *Scheduler) runSideJobs(ctx context.Context, log *slog.Logger, meta models.Meta, now time.Time) {
	if start, ok := healthWindow(now); ok && s.claim(ctx, log, healthJob, start, now) {
		s.sendHealthSummary(ctx, log, meta, now)
	}

	if start, ok := thanksWindow(now); ok && s.claim(ctx, log, thanksJob, start, now) {
		s.broadcastThanks(ctx, log, meta, now)
	}
}

func (s *Scheduler) claim(ctx context.Context, log *slog.Logger, job string, windowStart, now time.Time) bool {
	claimed, err := s.store.ClaimJobRun(ctx, job, windowStart, now)
	if err != nil {
		log.Error("scheduler: failed to claim job run", "job", job, "error", err)
		return false
	}
	if !claimed {
		log.Debug("scheduler: job already ran in this window", "job", job)
	}
	return claimed
}

// HealthSummary lists the operator-facing problems worth an alert. It is
// empty when everything is fine.
func HealthSummary(meta models.Meta, now time.Time) string {
	var lines []string
	if meta.DevModeEnabled {
		lines = append(lines, "Dev mode is enabled")
	}
	if meta.ScraperHalted {
		lines = append(lines, "Scraper is halted")
	}
	if meta.DonationLinkUpdated.IsZero() {
		lines = append(lines, "Donation link is not set, use /setdonate")
	} else if now.Sub(meta.DonationLinkUpdated) >= donationLinkWarnAge {
		lines = append(lines, "Donation link expiring soon, use /setdonate (updated "+
			humanize.RelTime(meta.DonationLinkUpdated, now, "ago", "from now")+")")
	}
	return strings.Join(lines, "\n\n")
}

func (s *Scheduler) sendHealthSummary(ctx context.Context, log *slog.Logger, meta models.Meta, now time.Time) {
	summary := HealthSummary(meta, now)
	if summary == "" || s.opts.OwnerChatID == 0 {
		return
	}
	if err := s.notifier.SendText(ctx, s.opts.OwnerChatID, summary, notifier.SendOptions{}); err != nil {
		log.Warn("scheduler: failed to send health summary", "error", err)
	}
}

// broadcastThanks thanks everyone who subscribed three to four weeks ago
func (s *Scheduler) broadcastThanks(ctx context.Context, log *slog.Logger, meta models.Meta, now time.Time) {
	if meta.DevModeEnabled {
		log.Warn("scheduler: dev mode is enabled, not broadcasting thanks messages")
		return
	}

	const week = 7 * 24 * time.Hour
	subscribers, err := s.store.SubscribersAddedBetween(ctx, now.Add(-4*week), now.Add(-3*week))
	if err != nil {
		log.Error("scheduler: failed to load subscribers for thanks message", "error", err)
		return
	}

	log.Warn("scheduler: broadcasting thanks message", "subscribers", len(subscribers))
	stats := s.notifier.SendEach(ctx, subscribers, notifier.ThanksMessage(meta.DonationLink),
		notifier.SendOptions{MarkdownV2: true, DisablePreview: true})
	log.Info("scheduler: thanks message sent", "sent", stats.Sent, "failed", stats.Failed)
}
