// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id  INTEGER NOT NULL,
		item_id  INTEGER NOT NULL,
		rating   DOUBLE NOT NULL,
		rated_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		PRIMARY KEY (user_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS model_registry (
		name       VARCHAR NOT NULL,
		version    INTEGER NOT NULL,
		job_id     VARCHAR NOT NULL,
		trained_at TIMESTAMP NOT NULL,
		metrics    VARCHAR,
		active     BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (name, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ratings_item ON ratings (item_id)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}
