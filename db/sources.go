package db

import (
	"context"
	"encoding/json"
	"fmt"

	"hestia/models"
)

// EnabledSources returns all enabled targets ordered by id
func (db *DB) EnabledSources(ctx context.Context) ([]models.Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, agency, queryurl, method, headers, post_data, user_info
		FROM hestia.targets
		WHERE enabled = true
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var (
			src                         models.Source
			headers, postData, userInfo []byte
		)
		if err := rows.Scan(&src.ID, &src.Agency, &src.QueryURL, &src.Method, &headers, &postData, &userInfo); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		src.Enabled = true

		if err := decodeSourceColumns(&src, headers, postData, userInfo); err != nil {
			// the remaining targets still run
			db.logger.Warn("db: skipping target with malformed configuration", "id", src.ID, "agency", src.Agency, "error", err)
			continue
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate targets: %w", err)
	}

	return sources, nil
}

// decodeSourceColumns fills the JSON columns of a target. NULL columns are left empty.
func decodeSourceColumns(src *models.Source, headers, postData, userInfo []byte) error {
	if isJSONValue(headers) {
		if err := json.Unmarshal(headers, &src.Headers); err != nil {
			return fmt.Errorf("invalid headers: %w", err)
		}
	}
	if isJSONValue(postData) {
		if !json.Valid(postData) {
			return fmt.Errorf("invalid post_data")
		}
		src.PostData = json.RawMessage(postData)
	}
	if isJSONValue(userInfo) {
		if err := json.Unmarshal(userInfo, &src.UserInfo); err != nil {
			return fmt.Errorf("invalid user_info: %w", err)
		}
	}
	return nil
}

func isJSONValue(b []byte) bool {
	return len(b) > 0 && string(b) != "null"
}
