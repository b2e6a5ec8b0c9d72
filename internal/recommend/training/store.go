// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/animerec/internal/recommend"
)

// JobStore persists job records.
type JobStore interface {
	// Put creates or replaces the record with job.ID.
	Put(ctx context.Context, job *Job) error

	// Get returns recommend.ErrJobNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Job, error)

	// List returns records newest first. limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]*Job, error)
}

// sortNewestFirst orders jobs by creation time, then id, both descending.
func sortNewestFirst(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID > jobs[j].ID
	})
}

func truncate(jobs []*Job, limit int) []*Job {
	if limit > 0 && len(jobs) > limit {
		return jobs[:limit]
	}
	return jobs
}

// MemoryJobStore keeps job records in process memory.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryJobStore creates an empty in-memory store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*Job)}
}

// Put stores a copy of job.
func (s *MemoryJobStore) Put(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.clone()
	return nil
}

// Get returns a copy of the record.
func (s *MemoryJobStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, recommend.ErrJobNotFound
	}
	return j.clone(), nil
}

// List returns copies of the newest records.
func (s *MemoryJobStore) List(_ context.Context, limit int) ([]*Job, error) {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return truncate(out, limit), nil
}
