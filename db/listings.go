package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hestia/models"
)

// RecentListingKeys returns the (address, city) keys of every home stored for
// source since the given time
func (db *DB) RecentListingKeys(ctx context.Context, source string, since time.Time) (map[models.ListingKey]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT address, city
		FROM hestia.homes
		WHERE agency = $1 AND date_added >= $2
	`, source, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent homes: %w", err)
	}
	defer rows.Close()

	keys := make(map[models.ListingKey]struct{})
	for rows.Next() {
		var address, city string
		if err := rows.Scan(&address, &city); err != nil {
			return nil, fmt.Errorf("failed to scan home: %w", err)
		}
		keys[models.NewListingKey(address, city)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate homes: %w", err)
	}

	return keys, nil
}

// AddListing persists a newly seen home. An unknown floor area is stored as NULL.
func (db *DB) AddListing(ctx context.Context, l models.Listing, added time.Time) error {
	var sqm sql.NullInt64
	if l.HasFloorArea() {
		sqm = sql.NullInt64{Int64: int64(l.SQM), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO hestia.homes (url, address, city, price, agency, date_added, sqm)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.URL, l.Address, l.City, l.Price, l.Source, added, sqm)
	if err != nil {
		return fmt.Errorf("failed to insert home %s: %w", l, err)
	}
	return nil
}
