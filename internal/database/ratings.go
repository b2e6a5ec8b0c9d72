// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/animerec/internal/recommend"
)

// UpsertRatings writes ratings, replacing an existing rating of the same
// (user, item) pair. Within one batch the last occurrence of a pair wins.
// It returns the number of rows written.
func (db *DB) UpsertRatings(ctx context.Context, rows []recommend.Interaction) (n int, err error) {
	start := time.Now()
	defer func() { observe("upsert", "ratings", start, err) }()

	rows = lastOccurrence(rows)
	if len(rows) == 0 {
		return 0, nil
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO ratings (user_id, item_id, rating, rated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer closeQuietly(stmt)

	now := time.Now().UTC()
	for _, r := range rows {
		if _, err = stmt.ExecContext(ctx, r.UserID, r.ItemID, r.Rating, now); err != nil {
			return 0, fmt.Errorf("upsert rating (%d, %d): %w", r.UserID, r.ItemID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// lastOccurrence collapses duplicate pairs, keeping the last one in input
// order.
func lastOccurrence(rows []recommend.Interaction) []recommend.Interaction {
	type pair struct{ user, item int }
	last := make(map[pair]int, len(rows))
	for i, r := range rows {
		last[pair{r.UserID, r.ItemID}] = i
	}
	if len(last) == len(rows) {
		return rows
	}
	out := make([]recommend.Interaction, 0, len(last))
	for i, r := range rows {
		if last[pair{r.UserID, r.ItemID}] == i {
			out = append(out, r)
		}
	}
	return out
}

// LoadInteractions returns every stored rating ordered by user and item.
// It implements training.RatingSource.
func (db *DB) LoadInteractions(ctx context.Context) (out []recommend.Interaction, err error) {
	start := time.Now()
	defer func() { observe("select", "ratings", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, item_id, rating FROM ratings ORDER BY user_id, item_id`)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var r recommend.Interaction
		if err = rows.Scan(&r.UserID, &r.ItemID, &r.Rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return out, nil
}

// RatingStats summarizes the ratings table.
type RatingStats struct {
	Ratings int     `json:"ratings"`
	Users   int     `json:"users"`
	Items   int     `json:"items"`
	Mean    float64 `json:"mean"`
}

// RatingStats returns table counts. Mean is 0 for an empty table.
func (db *DB) RatingStats(ctx context.Context) (st RatingStats, err error) {
	start := time.Now()
	defer func() { observe("stats", "ratings", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		SELECT count(*), count(DISTINCT user_id), count(DISTINCT item_id), coalesce(avg(rating), 0)
		FROM ratings`).Scan(&st.Ratings, &st.Users, &st.Items, &st.Mean)
	if err != nil {
		return RatingStats{}, fmt.Errorf("rating stats: %w", err)
	}
	return st, nil
}

// DeleteUserRatings removes all ratings of one user and returns the count.
func (db *DB) DeleteUserRatings(ctx context.Context, userID int) (n int64, err error) {
	start := time.Now()
	defer func() { observe("delete", "ratings", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM ratings WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete ratings of user %d: %w", userID, err)
	}
	return res.RowsAffected()
}

// SeedDemoData fills an empty ratings table with a synthetic catalog:
// users who share a taste cluster rate the cluster's items high. It does
// nothing when ratings already exist.
func (db *DB) SeedDemoData(ctx context.Context, scale recommend.RatingScale) (int, error) {
	st, err := db.RatingStats(ctx)
	if err != nil {
		return 0, err
	}
	if st.Ratings > 0 {
		return 0, nil
	}

	const (
		users    = 60
		items    = 80
		clusters = 4
		perUser  = 16
	)
	span := scale.Max - scale.Min
	rows := make([]recommend.Interaction, 0, users*perUser)
	for u := 1; u <= users; u++ {
		cluster := u % clusters
		for k := 0; k < perUser; k++ {
			item := (u*7+k*5)%items + 1
			score := 0.3 + 0.1*float64((u+item)%3)
			if item%clusters == cluster {
				score = 0.8 + 0.05*float64((u+item)%4)
			}
			rows = append(rows, recommend.Interaction{
				UserID: u,
				ItemID: item,
				Rating: scale.Clip(scale.Min + score*span),
			})
		}
	}

	n, err := db.UpsertRatings(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("seed demo data: %w", err)
	}
	db.logger.Info().Int("ratings", n).Msg("seeded demo ratings")
	return n, nil
}
