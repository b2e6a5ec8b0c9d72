// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/animerec/internal/recommend/algorithms"
	"github.com/tomtom215/animerec/internal/recommend/storage"
)

func mustStore(t *testing.T, dir string) *storage.Store {
	t.Helper()
	s, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("storage.NewStore() error = %v", err)
	}
	return s
}

func TestRestoreLatest_Empty(t *testing.T) {
	f := newFixture(t, catalog(30, 20, 12), nil)

	n, err := f.orch.RestoreLatest(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("RestoreLatest() = %d, %v", n, err)
	}
	if f.publisher.fallback != nil {
		t.Error("fallback installed with nothing restored")
	}
}

func TestRestoreLatest_AfterTraining(t *testing.T) {
	source := catalog(30, 20, 12)
	f := newFixture(t, source, nil)

	job, err := f.orch.Submit(context.Background(), algorithms.NameItemBasedCF)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if done := wait(t, f.orch, job.ID); done.Status != StatusCompleted {
		t.Fatalf("job = %+v", done)
	}

	// A second process sharing the artifact directory.
	pub := &fakePublisher{}
	orch, err := New(context.Background(), testConfig(), Deps{
		Source:    source,
		Trainers:  DefaultRegistry(testConfig().Models),
		Artifacts: f.artifacts,
		Jobs:      NewMemoryJobStore(),
		Publisher: pub,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(orch.Close)

	n, err := orch.RestoreLatest(context.Background())
	if err != nil {
		t.Fatalf("RestoreLatest() error = %v", err)
	}
	if n != 1 {
		t.Errorf("restored = %d, want 1", n)
	}
	if len(pub.published) != 1 || pub.published[0] != algorithms.NameItemBasedCF || pub.versions[0] != 1 {
		t.Errorf("published = %v versions = %v", pub.published, pub.versions)
	}
	if pub.fallback == nil || pub.fallback.Name() != algorithms.NamePopularity {
		t.Errorf("fallback = %v", pub.fallback)
	}
}

func TestRestoreLatest_SkipsCorruptArtifact(t *testing.T) {
	f := newFixture(t, catalog(30, 20, 12), nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "user_based_cf_v1.gob.gz")
	if err := os.WriteFile(path, []byte("not a model"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.orch.deps.Artifacts = mustStore(t, dir)

	n, err := f.orch.RestoreLatest(context.Background())
	if err != nil || n != 0 {
		t.Errorf("RestoreLatest() = %d, %v; want 0, nil", n, err)
	}
	if len(f.publisher.published) != 0 {
		t.Errorf("published corrupt artifact: %v", f.publisher.published)
	}
}
