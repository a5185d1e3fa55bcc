package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hestia/filter"
	"hestia/models"
)

// DefaultSendInterval keeps broadcasts under Telegram's 30 messages per second
const DefaultSendInterval = time.Second / 29

// SubscriberStore is the single write the notifier performs on subscribers
type SubscriberStore interface {
	DisableSubscriber(ctx context.Context, telegramID int64) error
}

// Stats summarizes a broadcast
type Stats struct {
	Sent     int
	Blocked  int
	Failed   int
	Skipped  int
	Listings int
}

// Notifier renders listings and delivers them to matching subscribers, one
// message at a time with a fixed pause between sends
type Notifier struct {
	sender   Sender
	store    SubscriberStore
	interval time.Duration
	logger   *slog.Logger

	lastSend time.Time
}

// New creates a new Notifier instance. A zero interval disables pacing.
func New(sender Sender, store SubscriberStore, interval time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:   sender,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// pace blocks until the send interval since the previous send has elapsed
func (n *Notifier) pace(ctx context.Context) error {
	if n.interval > 0 && !n.lastSend.IsZero() {
		if wait := n.interval - time.Since(n.lastSend); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.lastSend = time.Now()
	return nil
}

// Broadcast sends every listing to each subscriber whose filter matches it.
// agencies maps source ids to display names. A subscriber that blocked the
// bot is disabled once and skipped for the rest of the broadcast; any other
// send failure is logged. Broadcast stops early only when ctx is done.
func (n *Notifier) Broadcast(ctx context.Context, listings []models.Listing, subscribers []models.Subscriber, agencies map[string]string) Stats {
	stats := Stats{Listings: len(listings)}
	matcher := filter.New(subscribers)
	blocked := make(map[int64]bool)

	for _, l := range listings {
		text := FormatListing(l, agencies[l.Source])

		for _, sub := range matcher.Recipients(l) {
			if blocked[sub.TelegramID] {
				stats.Skipped++
				continue
			}

			if err := n.pace(ctx); err != nil {
				n.logger.Warn("notifier: broadcast interrupted", "error", err, "sent", stats.Sent)
				return stats
			}

			err := n.sender.Send(ctx, sub.TelegramID, text, SendOptions{MarkdownV2: true})
			switch {
			case err == nil:
				stats.Sent++
			case errors.Is(err, ErrRecipientBlocked):
				stats.Blocked++
				blocked[sub.TelegramID] = true
				if err := n.store.DisableSubscriber(ctx, sub.TelegramID); err != nil {
					n.logger.Error("notifier: failed to disable subscriber", "chat_id", sub.TelegramID, "error", err)
					continue
				}
				n.logger.Warn("notifier: removed subscriber due to broadcast failure", "chat_id", sub.TelegramID, "error", err)
			default:
				stats.Failed++
				n.logger.Warn("notifier: failed to broadcast", "chat_id", sub.TelegramID, "listing", l.String(), "error", err)
			}
		}
	}

	return stats
}

// SendText sends a single paced message, e.g. an owner alert
func (n *Notifier) SendText(ctx context.Context, chatID int64, text string, opts SendOptions) error {
	if err := n.pace(ctx); err != nil {
		return err
	}
	return n.sender.Send(ctx, chatID, text, opts)
}

// SendEach delivers the same text to every subscriber, logging and skipping
// failures
func (n *Notifier) SendEach(ctx context.Context, subscribers []models.Subscriber, text string, opts SendOptions) Stats {
	var stats Stats
	for _, sub := range subscribers {
		if err := n.SendText(ctx, sub.TelegramID, text, opts); err != nil {
			if ctx.Err() != nil {
				return stats
			}
			stats.Failed++
			n.logger.Warn("notifier: failed to send message", "chat_id", sub.TelegramID, "error", err)
			continue
		}
		stats.Sent++
	}
	return stats
}
