// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/evaluation"
	"github.com/tomtom215/animerec/internal/recommend/training"
)

var _ training.ModelRegistry = (*DB)(nil)

// RecordModel inserts or replaces the registry row of one artifact version.
// An active record deactivates every other row.
func (db *DB) RecordModel(ctx context.Context, rec training.ModelRecord) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "model_registry", start, err) }()

	var encoded []byte
	if rec.Metrics != nil {
		if encoded, err = json.Marshal(rec.Metrics); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if rec.Active {
		if _, err = tx.ExecContext(ctx, `UPDATE model_registry SET active = false WHERE active`); err != nil {
			return fmt.Errorf("clear active: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO model_registry (name, version, job_id, trained_at, metrics, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Version, rec.JobID, rec.TrainedAt.UTC(), nullableString(encoded), rec.Active)
	if err != nil {
		return fmt.Errorf("insert model record: %w", err)
	}
	return tx.Commit()
}

// LatestModels returns the newest record of every model, sorted by name.
func (db *DB) LatestModels(ctx context.Context) ([]training.ModelRecord, error) {
	return db.queryRecords(ctx, "latest", `
		SELECT name, version, job_id, trained_at, metrics,
		       bool_or(active) OVER (PARTITION BY name) AS active
		FROM model_registry
		QUALIFY row_number() OVER (PARTITION BY name ORDER BY version DESC) = 1
		ORDER BY name`)
}

// ModelHistory returns every recorded version of one model, newest first.
func (db *DB) ModelHistory(ctx context.Context, name string) ([]training.ModelRecord, error) {
	return db.queryRecords(ctx, "history", `
		SELECT name, version, job_id, trained_at, metrics, active
		FROM model_registry
		WHERE name = ?
		ORDER BY version DESC`, name)
}

// LatestReports maps each model to the evaluation report of its newest
// version. Models recorded without a report are omitted.
func (db *DB) LatestReports(ctx context.Context) (map[string]*evaluation.Report, error) {
	recs, err := db.LatestModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*evaluation.Report, len(recs))
	for _, r := range recs {
		if r.Metrics != nil {
			out[r.Name] = r.Metrics
		}
	}
	return out, nil
}

// SetActiveModel marks the newest version of name active and every other
// row inactive. It returns recommend.ErrUnknownModel when nothing has been
// recorded for name.
func (db *DB) SetActiveModel(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observe("update", "model_registry", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var version int
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM model_registry WHERE name = ? ORDER BY version DESC LIMIT 1`, name).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: no trained version of %q", recommend.ErrUnknownModel, name)
		return err
	}
	if err != nil {
		return fmt.Errorf("lookup model: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE model_registry SET active = false WHERE active`); err != nil {
		return fmt.Errorf("clear active: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE model_registry SET active = true WHERE name = ? AND version = ?`, name, version); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return tx.Commit()
}

// ActiveModel returns the name of the active model, or "" when none is.
func (db *DB) ActiveModel(ctx context.Context) (name string, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT name FROM model_registry WHERE active ORDER BY version DESC LIMIT 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("active model: %w", err)
	}
	return name, nil
}

func (db *DB) queryRecords(ctx context.Context, op, query string, args ...any) (out []training.ModelRecord, err error) {
	start := time.Now()
	defer func() { observe(op, "model_registry", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query model registry: %w", err)
	}
	defer closeQuietly(rows)

	out = []training.ModelRecord{}
	for rows.Next() {
		var (
			rec     training.ModelRecord
			metrics sql.NullString
		)
		if err = rows.Scan(&rec.Name, &rec.Version, &rec.JobID, &rec.TrainedAt, &metrics, &rec.Active); err != nil {
			return nil, fmt.Errorf("scan model record: %w", err)
		}
		if metrics.Valid && metrics.String != "" {
			rec.Metrics = &evaluation.Report{}
			if err = json.Unmarshal([]byte(metrics.String), rec.Metrics); err != nil {
				return nil, fmt.Errorf("decode metrics of %s v%d: %w", rec.Name, rec.Version, err)
			}
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model registry: %w", err)
	}
	return out, nil
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
