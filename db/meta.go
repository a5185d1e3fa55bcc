package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hestia/models"
)

// GetMeta returns the operator state. A missing row yields models.DefaultMeta().
func (db *DB) GetMeta(ctx context.Context) (models.Meta, error) {
	var (
		meta    models.Meta
		updated sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT scraper_halted, devmode_enabled, donation_link, donation_link_updated
		FROM hestia.meta
		WHERE id = 'default'
	`).Scan(&meta.ScraperHalted, &meta.DevModeEnabled, &meta.DonationLink, &updated)

	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultMeta(), nil
	}
	if err != nil {
		return models.Meta{}, fmt.Errorf("failed to read meta: %w", err)
	}

	if updated.Valid {
		meta.DonationLinkUpdated = updated.Time
	}
	return meta, nil
}

// ClaimJobRun records that the named job fires at now, unless it already
// fired at or after windowStart. It reports whether the caller won the claim.
func (db *DB) ClaimJobRun(ctx context.Context, name string, windowStart, now time.Time) (bool, error) {
	var claimed string
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO hestia.job_runs (name, last_fired)
		VALUES ($1, $3)
		ON CONFLICT (name) DO UPDATE
		SET last_fired = EXCLUDED.last_fired
		WHERE hestia.job_runs.last_fired < $2
		RETURNING name
	`, name, windowStart, now).Scan(&claimed)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim job run %s: %w", name, err)
	}
	return true, nil
}
