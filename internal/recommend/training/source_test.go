// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/animerec/internal/recommend"
)

type flakySource struct {
	calls atomic.Int32
	err   error
}

func (f *flakySource) LoadInteractions(context.Context) ([]recommend.Interaction, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []recommend.Interaction{{UserID: 1, ItemID: 1, Rating: 5}}, nil
}

func TestSliceSource(t *testing.T) {
	src := SliceSource{{UserID: 1, ItemID: 2, Rating: 3}}
	rows, err := src.LoadInteractions(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("LoadInteractions() = %v, %v", rows, err)
	}
	rows[0].Rating = 9
	if src[0].Rating != 3 {
		t.Error("LoadInteractions() returned the backing slice")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.LoadInteractions(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled load error = %v", err)
	}
}

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	down := errors.New("database unavailable")
	src := &flakySource{err: down}
	b := NewBreakerSource(src, BreakerConfig{FailureThreshold: 2, Timeout: time.Hour}, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := b.LoadInteractions(ctx); !errors.Is(err, down) {
			t.Fatalf("load %d error = %v, want source error", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen.String() {
		t.Fatalf("State() = %s, want open", b.State())
	}

	_, err := b.LoadInteractions(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open breaker error = %v, want ErrOpenState", err)
	}
	if src.calls.Load() != 2 {
		t.Errorf("source called %d times, want 2", src.calls.Load())
	}
}

func TestBreakerSource_PassesThrough(t *testing.T) {
	b := NewBreakerSource(&flakySource{}, BreakerConfig{}, zerolog.Nop())
	rows, err := b.LoadInteractions(context.Background())
	if err != nil || len(rows) != 1 {
		t.Errorf("LoadInteractions() = %v, %v", rows, err)
	}
	if b.State() != gobreaker.StateClosed.String() {
		t.Errorf("State() = %s, want closed", b.State())
	}
}
