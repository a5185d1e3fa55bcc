package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hestia/models"
)

const subscriberColumns = `telegram_id, telegram_enabled, user_level, date_added,
	filter_min_price, filter_max_price, filter_cities, filter_agencies, filter_min_sqm, lang`

type rowScanner interface {
	Scan(dest ...any) error
}

// subscriberRow holds the raw columns of a subscriber before the JSON filter
// lists are decoded
type subscriberRow struct {
	sub              models.Subscriber
	cities, agencies []byte
}

func scanSubscriber(row rowScanner) (subscriberRow, error) {
	var r subscriberRow
	err := row.Scan(
		&r.sub.TelegramID, &r.sub.Enabled, &r.sub.UserLevel, &r.sub.DateAdded,
		&r.sub.Filter.MinPrice, &r.sub.Filter.MaxPrice, &r.cities, &r.agencies, &r.sub.Filter.MinSQM, &r.sub.Lang,
	)
	return r, err
}

// decode turns the JSON filter lists into lower-cased string slices
func (r subscriberRow) decode() (models.Subscriber, error) {
	sub := r.sub
	cities, err := decodeFilterList(r.cities)
	if err != nil {
		return sub, fmt.Errorf("invalid filter_cities: %w", err)
	}
	agencies, err := decodeFilterList(r.agencies)
	if err != nil {
		return sub, fmt.Errorf("invalid filter_agencies: %w", err)
	}
	sub.Filter.Cities = lowerAll(cities)
	sub.Filter.Sources = lowerAll(agencies)
	return sub, nil
}

// decodeFilterList decodes a JSON array of strings. NULL reads as an empty list.
func decodeFilterList(raw []byte) ([]string, error) {
	if !isJSONValue(raw) {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

func (db *DB) querySubscribers(ctx context.Context, query string, args ...any) ([]models.Subscriber, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscriber
	for rows.Next() {
		row, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		sub, err := row.decode()
		if err != nil {
			db.logger.Warn("db: skipping subscriber with malformed filter", "chat_id", sub.TelegramID, "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}
	return subs, nil
}

// ActiveSubscribers returns every subscriber with Telegram delivery enabled
func (db *DB) ActiveSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	return db.querySubscribers(ctx, `
		SELECT `+subscriberColumns+`
		FROM hestia.subscribers
		WHERE telegram_enabled = true
		ORDER BY telegram_id
	`)
}

// SubscribersAddedBetween returns enabled subscribers whose date_added lies in [from, to)
func (db *DB) SubscribersAddedBetween(ctx context.Context, from, to time.Time) ([]models.Subscriber, error) {
	return db.querySubscribers(ctx, `
		SELECT `+subscriberColumns+`
		FROM hestia.subscribers
		WHERE telegram_enabled = true AND date_added >= $1 AND date_added < $2
		ORDER BY telegram_id
	`, from, to)
}

// DisableSubscriber turns off delivery for a subscriber, e.g. after they blocked the bot
func (db *DB) DisableSubscriber(ctx context.Context, telegramID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE hestia.subscribers
		SET telegram_enabled = false
		WHERE telegram_id = $1
	`, telegramID)
	if err != nil {
		return fmt.Errorf("failed to disable subscriber %d: %w", telegramID, err)
	}
	return nil
}
