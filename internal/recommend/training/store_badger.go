// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/animerec/internal/recommend"
)

const jobKeyPrefix = "training_job:"

// BadgerJobStore implements JobStore on BadgerDB so job history survives
// restarts.
type BadgerJobStore struct {
	db *badger.DB
}

// NewBadgerJobStore wraps an open database. The caller owns db.
func NewBadgerJobStore(db *badger.DB) *BadgerJobStore {
	return &BadgerJobStore{db: db}
}

// OpenBadger opens a job database in dir, or in memory when dir is empty.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// Put stores job as JSON.
func (s *BadgerJobStore) Put(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(jobKeyPrefix+job.ID), data); err != nil {
			return fmt.Errorf("set job: %w", err)
		}
		return nil
	})
}

// Get retrieves a job by ID.
func (s *BadgerJobStore) Get(ctx context.Context, id string) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var job Job

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jobKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return recommend.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List scans every job record and returns the newest.
func (s *BadgerJobStore) List(ctx context.Context, limit int) ([]*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var jobs []*Job

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var job Job
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			})
			if err != nil {
				return fmt.Errorf("decode job %s: %w", it.Item().Key(), err)
			}
			jobs = append(jobs, &job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	sortNewestFirst(jobs)
	return truncate(jobs, limit), nil
}
