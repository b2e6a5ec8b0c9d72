// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/evaluation"
)

func newBadgerStore(t *testing.T) *BadgerJobStore {
	t.Helper()
	db, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerJobStore(db)
}

func TestJobStores(t *testing.T) {
	stores := map[string]func(t *testing.T) JobStore{
		"memory": func(*testing.T) JobStore { return NewMemoryJobStore() },
		"badger": func(t *testing.T) JobStore { return newBadgerStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := open(t)
			base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

			for i, id := range []string{"train_a", "train_b", "train_c"} {
				job := &Job{
					ID:        id,
					ModelName: "item_based_cf",
					Status:    StatusPending,
					CreatedAt: base.Add(time.Duration(i) * time.Hour),
				}
				if err := s.Put(ctx, job); err != nil {
					t.Fatalf("Put(%s) error = %v", id, err)
				}
			}

			done := base.Add(5 * time.Hour)
			updated := &Job{
				ID:          "train_b",
				ModelName:   "item_based_cf",
				Status:      StatusCompleted,
				Progress:    100,
				CreatedAt:   base.Add(time.Hour),
				CompletedAt: &done,
				Metrics:     &evaluation.Report{RMSE: 1.25, K: 10},
				Version:     4,
			}
			if err := s.Put(ctx, updated); err != nil {
				t.Fatalf("Put(update) error = %v", err)
			}

			got, err := s.Get(ctx, "train_b")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Status != StatusCompleted || got.Version != 4 || got.Metrics == nil || got.Metrics.RMSE != 1.25 {
				t.Errorf("Get() = %+v", got)
			}
			if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
				t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, done)
			}

			if _, err := s.Get(ctx, "train_missing"); !errors.Is(err, recommend.ErrJobNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrJobNotFound", err)
			}

			list, err := s.List(ctx, 2)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != 2 || list[0].ID != "train_c" || list[1].ID != "train_b" {
				t.Errorf("List(2) = %v", jobIDs(list))
			}
			all, _ := s.List(ctx, 0)
			if len(all) != 3 {
				t.Errorf("List(0) returned %d jobs, want 3", len(all))
			}
		})
	}
}

func TestMemoryJobStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	job := &Job{ID: "train_x", Status: StatusRunning, Progress: 25}
	_ = s.Put(ctx, job)

	job.Progress = 99
	got, _ := s.Get(ctx, "train_x")
	if got.Progress != 25 {
		t.Errorf("stored job aliased the caller's value: progress %d", got.Progress)
	}
}
